package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"duit/internal/core"
	"duit/internal/storage"
)

// LedgerService orchestrates every write to the ledger. It validates the
// domain object, persists it, and invalidates cached reports so the next
// read recomputes.
type LedgerService struct {
	store   *storage.SQLiteStore
	reports *ReportService
}

func NewLedgerService(store *storage.SQLiteStore, reports *ReportService) *LedgerService {
	return &LedgerService{store: store, reports: reports}
}

func (s *LedgerService) invalidate() {
	if s.reports != nil {
		s.reports.Invalidate()
	}
}

// --- expenses ---

func (s *LedgerService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.invalidate()
	return created, nil
}

func (s *LedgerService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.invalidate()
	return updated, nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.invalidate()
	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// --- categories ---

func (s *LedgerService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.invalidate()
	return created, nil
}

func (s *LedgerService) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.invalidate()
	return updated, nil
}

// DeleteCategory refuses to delete a category that still has expenses;
// that surfaces as storage.ErrIntegrity. The count check gives a clean
// answer up front; the RESTRICT foreign key still backstops races.
func (s *LedgerService) DeleteCategory(ctx context.Context, id string) error {
	n, err := s.store.CountExpensesForCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("delete category: %w", storage.ErrIntegrity)
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidate()
	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}

// --- funding sources ---

func (s *LedgerService) CreateFundingSource(ctx context.Context, f core.FundingSource) (core.FundingSource, error) {
	if err := f.Validate(); err != nil {
		return core.FundingSource{}, err
	}
	created, err := s.store.CreateFundingSource(ctx, f)
	if err != nil {
		return core.FundingSource{}, fmt.Errorf("create funding source: %w", err)
	}
	s.invalidate()
	return created, nil
}

func (s *LedgerService) UpdateFundingSource(ctx context.Context, f core.FundingSource) (core.FundingSource, error) {
	if err := f.Validate(); err != nil {
		return core.FundingSource{}, err
	}
	updated, err := s.store.UpdateFundingSource(ctx, f)
	if err != nil {
		return core.FundingSource{}, fmt.Errorf("update funding source: %w", err)
	}
	s.invalidate()
	return updated, nil
}

// DeleteFundingSource always succeeds for an existing source; expenses
// that referenced it keep their history with the source detached.
func (s *LedgerService) DeleteFundingSource(ctx context.Context, id string) error {
	if err := s.store.DeleteFundingSource(ctx, id); err != nil {
		return fmt.Errorf("delete funding source: %w", err)
	}
	s.invalidate()
	slog.InfoContext(ctx, "Funding source deleted", "id", id)
	return nil
}

// --- settings ---

func (s *LedgerService) UpdateSettings(ctx context.Context, budget decimal.Decimal, currency string) (core.AppSettings, error) {
	candidate := core.AppSettings{MonthlyBudget: budget, Currency: currency}
	if err := candidate.Validate(); err != nil {
		return core.AppSettings{}, err
	}
	updated, err := s.store.UpdateSettings(ctx, budget, currency)
	if err != nil {
		return core.AppSettings{}, fmt.Errorf("update settings: %w", err)
	}
	s.invalidate()
	slog.InfoContext(ctx, "Settings updated", "budget", budget.String(), "currency", currency)
	return updated, nil
}
