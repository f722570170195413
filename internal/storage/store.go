package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"duit/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the single process-wide ledger store. It is constructed
// once at startup and injected into every component that needs persistence.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database, enables foreign keys and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows one writer at a time; a single pooled connection keeps
	// concurrent handlers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping verifies the database connection is usable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// normalize stores all instants as UTC so that text-encoded timestamps
// compare in chronological order.
func normalize(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC()
}

func scanDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// --- app settings ---

// GetSettings fetches the singleton settings row.
func (s *SQLiteStore) GetSettings(ctx context.Context) (core.AppSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash, monthly_budget, currency, created_at, updated_at
		 FROM app_settings WHERE id = ?`, core.SettingsID)

	var set core.AppSettings
	var budget string
	if err := row.Scan(&set.ID, &set.PasswordHash, &budget, &set.Currency, &set.CreatedAt, &set.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.AppSettings{}, ErrNotFound
		}
		return core.AppSettings{}, fmt.Errorf("get settings: %w", err)
	}
	b, err := scanDecimal(budget)
	if err != nil {
		return core.AppSettings{}, fmt.Errorf("decode monthly budget: %w", err)
	}
	set.MonthlyBudget = b
	return set, nil
}

// CreateSettings inserts the settings row. Only the explicit initialization
// step calls this; a second call conflicts.
func (s *SQLiteStore) CreateSettings(ctx context.Context, set core.AppSettings) (core.AppSettings, error) {
	now := normalize(time.Now())
	set.ID = core.SettingsID
	set.CreatedAt = now
	set.UpdatedAt = now
	if set.Currency == "" {
		set.Currency = core.DefaultCurrency
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_settings (id, password_hash, monthly_budget, currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		set.ID, set.PasswordHash, set.MonthlyBudget.String(), set.Currency, set.CreatedAt, set.UpdatedAt)
	if err != nil {
		return core.AppSettings{}, fmt.Errorf("create settings: %w", mapConstraintErr(err, err))
	}
	return set, nil
}

// UpdateSettings mutates budget and currency, never the password hash.
func (s *SQLiteStore) UpdateSettings(ctx context.Context, budget decimal.Decimal, currency string) (core.AppSettings, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE app_settings SET monthly_budget = ?, currency = ?, updated_at = ? WHERE id = ?`,
		budget.String(), currency, normalize(time.Now()), core.SettingsID)
	if err != nil {
		return core.AppSettings{}, fmt.Errorf("update settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.AppSettings{}, ErrNotFound
	}
	return s.GetSettings(ctx)
}

// UpdatePasswordHash overwrites the stored credential. Callers must have
// re-verified the current password first.
func (s *SQLiteStore) UpdatePasswordHash(ctx context.Context, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE app_settings SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, normalize(time.Now()), core.SettingsID)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- categories ---

func (s *SQLiteStore) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = normalize(time.Now())

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, color, icon, budget, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Color, c.Icon, c.Budget.String(), c.CreatedAt)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", mapConstraintErr(err, err))
	}

	slog.InfoContext(ctx, "Category created", "id", c.ID, "name", c.Name)
	return c, nil
}

func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, color, icon, budget, created_at FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

// ListCategories returns all categories in creation order.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, color, icon, budget, created_at FROM categories ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ?, icon = ?, budget = ? WHERE id = ?`,
		c.Name, c.Color, c.Icon, c.Budget.String(), c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", mapConstraintErr(err, err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, ErrNotFound
	}
	return s.GetCategory(ctx, c.ID)
}

// DeleteCategory removes a category. The foreign key on expenses is
// RESTRICT, so a category with ledger history cannot be deleted; that
// violation surfaces as ErrIntegrity.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", mapConstraintErr(err, ErrIntegrity))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountExpensesForCategory reports how many expenses reference a category.
func (s *SQLiteStore) CountExpensesForCategory(ctx context.Context, id string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE category_id = ?`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expenses for category: %w", err)
	}
	return n, nil
}

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	var budget string
	if err := row.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &budget, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Category{}, ErrNotFound
		}
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	b, err := scanDecimal(budget)
	if err != nil {
		return core.Category{}, fmt.Errorf("decode category budget: %w", err)
	}
	c.Budget = b
	return c, nil
}

// --- funding sources ---

func (s *SQLiteStore) CreateFundingSource(ctx context.Context, f core.FundingSource) (core.FundingSource, error) {
	f.ID = uuid.NewString()
	f.CreatedAt = normalize(time.Now())
	if f.Icon == "" {
		f.Icon = f.Type.DefaultIcon()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO funding_sources (id, name, type, balance, icon, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, string(f.Type), f.Balance.String(), f.Icon, f.CreatedAt)
	if err != nil {
		return core.FundingSource{}, fmt.Errorf("create funding source: %w", mapConstraintErr(err, err))
	}

	slog.InfoContext(ctx, "Funding source created", "id", f.ID, "name", f.Name, "type", f.Type)
	return f, nil
}

func (s *SQLiteStore) GetFundingSource(ctx context.Context, id string) (core.FundingSource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, balance, icon, created_at FROM funding_sources WHERE id = ?`, id)
	return scanFundingSource(row)
}

// ListFundingSources returns all funding sources ordered by name.
func (s *SQLiteStore) ListFundingSources(ctx context.Context) ([]core.FundingSource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, balance, icon, created_at FROM funding_sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list funding sources: %w", err)
	}
	defer rows.Close()

	var out []core.FundingSource
	for rows.Next() {
		f, err := scanFundingSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateFundingSource(ctx context.Context, f core.FundingSource) (core.FundingSource, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE funding_sources SET name = ?, type = ?, balance = ?, icon = ? WHERE id = ?`,
		f.Name, string(f.Type), f.Balance.String(), f.Icon, f.ID)
	if err != nil {
		return core.FundingSource{}, fmt.Errorf("update funding source: %w", mapConstraintErr(err, err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.FundingSource{}, ErrNotFound
	}
	return s.GetFundingSource(ctx, f.ID)
}

// DeleteFundingSource removes a source. Referencing expenses keep their
// history; the schema sets their funding_source_id NULL.
func (s *SQLiteStore) DeleteFundingSource(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM funding_sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete funding source: %w", mapConstraintErr(err, ErrIntegrity))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFundingSource(row interface{ Scan(...any) error }) (core.FundingSource, error) {
	var f core.FundingSource
	var balance, typ string
	if err := row.Scan(&f.ID, &f.Name, &typ, &balance, &f.Icon, &f.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.FundingSource{}, ErrNotFound
		}
		return core.FundingSource{}, fmt.Errorf("scan funding source: %w", err)
	}
	f.Type = core.SourceType(typ)
	b, err := scanDecimal(balance)
	if err != nil {
		return core.FundingSource{}, fmt.Errorf("decode balance: %w", err)
	}
	f.Balance = b
	return f, nil
}

// --- expenses ---

// CreateExpense inserts a ledger entry. A dangling category or funding
// source reference fails the foreign key check and surfaces as ErrNotFound
// before any row is persisted.
func (s *SQLiteStore) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = uuid.NewString()
	e.Date = normalize(e.Date)
	e.CreatedAt = normalize(time.Now())

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (id, amount, description, date, category_id, funding_source_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Amount.String(), e.Description, e.Date, e.CategoryID, nullable(e.FundingSourceID), e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", mapConstraintErr(err, ErrNotFound))
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"description", e.Description,
		"amount", e.Amount.String(),
		"category_id", e.CategoryID)
	return e, nil
}

func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, amount, description, date, category_id, funding_source_id, created_at
		 FROM expenses WHERE id = ?`, id)
	return scanExpense(row)
}

func (s *SQLiteStore) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, description = ?, date = ?, category_id = ?, funding_source_id = ?
		 WHERE id = ?`,
		e.Amount.String(), e.Description, normalize(e.Date), e.CategoryID, nullable(e.FundingSourceID), e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", mapConstraintErr(err, ErrNotFound))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Expense{}, ErrNotFound
	}
	return s.GetExpense(ctx, e.ID)
}

func (s *SQLiteStore) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpenses returns expenses ordered by date descending. A nil range
// means the whole ledger.
func (s *SQLiteStore) ListExpenses(ctx context.Context, r *core.Range) ([]core.Expense, error) {
	query := `SELECT id, amount, description, date, category_id, funding_source_id, created_at FROM expenses`
	var args []any
	if r != nil {
		query += ` WHERE date >= ? AND date <= ?`
		args = append(args, normalize(r.Start), normalize(r.End))
	}
	query += ` ORDER BY date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ExpenseDetail joins an expense with the display fields of its category
// and, when present, its funding source.
type ExpenseDetail struct {
	core.Expense
	CategoryName      string          `json:"categoryName"`
	CategoryColor     string          `json:"categoryColor"`
	CategoryIcon      string          `json:"categoryIcon"`
	FundingSourceName string          `json:"fundingSourceName,omitempty"`
	FundingSourceType core.SourceType `json:"fundingSourceType,omitempty"`
	FundingSourceIcon string          `json:"fundingSourceIcon,omitempty"`
}

// ListExpenseDetails returns joined expenses ordered by date descending.
// A nil range means the whole ledger; limit <= 0 means no limit.
func (s *SQLiteStore) ListExpenseDetails(ctx context.Context, r *core.Range, limit int) ([]ExpenseDetail, error) {
	query := `SELECT e.id, e.amount, e.description, e.date, e.category_id, e.funding_source_id, e.created_at,
	                 c.name, c.color, c.icon,
	                 fs.name, fs.type, fs.icon
	          FROM expenses e
	          JOIN categories c ON c.id = e.category_id
	          LEFT JOIN funding_sources fs ON fs.id = e.funding_source_id`
	var args []any
	if r != nil {
		query += ` WHERE e.date >= ? AND e.date <= ?`
		args = append(args, normalize(r.Start), normalize(r.End))
	}
	query += ` ORDER BY e.date DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expense details: %w", err)
	}
	defer rows.Close()

	var out []ExpenseDetail
	for rows.Next() {
		var d ExpenseDetail
		var amount string
		var srcID, srcName, srcType, srcIcon sql.NullString
		if err := rows.Scan(&d.ID, &amount, &d.Description, &d.Date, &d.CategoryID, &srcID, &d.CreatedAt,
			&d.CategoryName, &d.CategoryColor, &d.CategoryIcon,
			&srcName, &srcType, &srcIcon); err != nil {
			return nil, fmt.Errorf("scan expense detail: %w", err)
		}
		a, err := scanDecimal(amount)
		if err != nil {
			return nil, fmt.Errorf("decode amount: %w", err)
		}
		d.Amount = a
		d.FundingSourceID = srcID.String
		d.FundingSourceName = srcName.String
		d.FundingSourceType = core.SourceType(srcType.String)
		d.FundingSourceIcon = srcIcon.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanExpense(row interface{ Scan(...any) error }) (core.Expense, error) {
	var e core.Expense
	var amount string
	var srcID sql.NullString
	if err := row.Scan(&e.ID, &amount, &e.Description, &e.Date, &e.CategoryID, &srcID, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	a, err := scanDecimal(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode amount: %w", err)
	}
	e.Amount = a
	e.FundingSourceID = srcID.String
	return e, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
