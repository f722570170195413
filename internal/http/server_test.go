package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"duit/internal/auth"
	"duit/internal/config"
	"duit/internal/core"
	"duit/internal/services"
	"duit/internal/storage"
)

type testEnv struct {
	server *Server
	store  *storage.SQLiteStore
	ledger *services.LedgerService
	cookie *http.Cookie
}

func newTestEnv(t *testing.T, initialized bool) *testEnv {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if initialized {
		hash, err := auth.HashPassword("secret123")
		if err != nil {
			t.Fatalf("HashPassword() error = %v", err)
		}
		_, err = store.CreateSettings(context.Background(), core.AppSettings{
			PasswordHash:  hash,
			MonthlyBudget: decimal.NewFromInt(5000000),
		})
		if err != nil {
			t.Fatalf("CreateSettings() error = %v", err)
		}
	}

	cfg := &config.Config{
		Port:          "0",
		SessionSecret: "test-secret-at-least-16",
		SessionTTL:    time.Hour,
		RateLimitRPM:  1000,
		CacheTTL:      time.Minute,
	}
	reports := services.NewReportService(store, nil, cfg.CacheTTL)
	ledger := services.NewLedgerService(store, reports)
	tokens := auth.NewTokenManager(cfg.SessionSecret, cfg.SessionTTL)
	srv := NewServer(cfg, store, reports, ledger, tokens)
	t.Cleanup(func() { srv.rateLimiter.stop() })

	env := &testEnv{server: srv, store: store, ledger: ledger}
	if initialized {
		env.cookie = env.login(t, "secret123")
	}
	return env
}

func (e *testEnv) login(t *testing.T, password string) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/login", `{"password":"`+password+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("login did not set session cookie")
	return nil
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	var out T
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &out); err != nil {
			t.Fatalf("decode data: %v (data %s)", err, env.Data)
		}
	}
	return out
}

func TestHealthProbes(t *testing.T) {
	env := newTestEnv(t, false)

	if rec := env.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", rec.Code)
	}
}

func TestGateRejectsWithoutSession(t *testing.T) {
	env := newTestEnv(t, true)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/categories"},
		{http.MethodGet, "/expenses"},
		{http.MethodGet, "/dashboard/stats"},
		{http.MethodGet, "/settings"},
		{http.MethodPost, "/auth/change-password"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			if rec := env.do(t, p.method, p.path, "", nil); rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}

	bad := &http.Cookie{Name: sessionCookie, Value: "forged"}
	if rec := env.do(t, http.MethodGet, "/categories", "", bad); rec.Code != http.StatusUnauthorized {
		t.Errorf("forged cookie status = %d, want 401", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	t.Run("uninitialized", func(t *testing.T) {
		env := newTestEnv(t, false)
		rec := env.do(t, http.MethodPost, "/auth/login", `{"password":"anything"}`, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404 before initialization", rec.Code)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		env := newTestEnv(t, true)
		rec := env.do(t, http.MethodPost, "/auth/login", `{"password":"nope"}`, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("empty password", func(t *testing.T) {
		env := newTestEnv(t, true)
		rec := env.do(t, http.MethodPost, "/auth/login", `{"password":""}`, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("already authenticated short-circuits", func(t *testing.T) {
		env := newTestEnv(t, true)
		rec := env.do(t, http.MethodPost, "/auth/login", `{"password":"does-not-matter"}`, env.cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		data := decodeData[map[string]bool](t, rec)
		if !data["alreadyAuthenticated"] {
			t.Errorf("expected alreadyAuthenticated flag, got %v", data)
		}
	})
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/auth/logout", "", env.cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie && c.MaxAge >= 0 {
			t.Errorf("logout cookie MaxAge = %d, want negative", c.MaxAge)
		}
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/auth/change-password",
		`{"currentPassword":"wrong","newPassword":"newsecret"}`, env.cookie)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong current password status = %d, want 401", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/auth/change-password",
		`{"currentPassword":"secret123","newPassword":"newsecret"}`, env.cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("change password status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Old password no longer works, new one does.
	rec = env.do(t, http.MethodPost, "/auth/login", `{"password":"secret123"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("old password login status = %d, want 401", rec.Code)
	}
	env.login(t, "newsecret")
}

func TestCategoryLifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/categories",
		`{"name":"Food","color":"#EF4444","icon":"🍜","budget":"500000"}`, env.cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeData[core.Category](t, rec)
	if created.ID == "" || created.Name != "Food" {
		t.Fatalf("unexpected created category: %+v", created)
	}

	if rec := env.do(t, http.MethodPost, "/categories", `{"name":"Food"}`, env.cookie); rec.Code != http.StatusConflict {
		t.Errorf("duplicate name status = %d, want 409", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/categories", `{"name":"  "}`, env.cookie); rec.Code != http.StatusBadRequest {
		t.Errorf("blank name status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/categories/"+created.ID, `{"budget":"750000"}`, env.cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", rec.Code, rec.Body.String())
	}
	patched := decodeData[core.Category](t, rec)
	if !patched.Budget.Equal(decimal.NewFromInt(750000)) {
		t.Errorf("patched budget = %s, want 750000", patched.Budget)
	}
	if patched.Name != "Food" {
		t.Errorf("patch overwrote name: %q", patched.Name)
	}

	if rec := env.do(t, http.MethodGet, "/categories/missing", "", env.cookie); rec.Code != http.StatusNotFound {
		t.Errorf("get missing status = %d, want 404", rec.Code)
	}

	if rec := env.do(t, http.MethodDelete, "/categories/"+created.ID, "", env.cookie); rec.Code != http.StatusOK {
		t.Errorf("delete status = %d, want 200", rec.Code)
	}
}

func TestDeleteCategoryWithExpenses(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	cat, err := env.ledger.CreateCategory(ctx, core.Category{Name: "Food"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	_, err = env.ledger.CreateExpense(ctx, core.Expense{
		Amount:      decimal.NewFromInt(25000),
		Description: "lunch",
		Date:        time.Now(),
		CategoryID:  cat.ID,
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	rec := env.do(t, http.MethodDelete, "/categories/"+cat.ID, "", env.cookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("delete referenced category status = %d, want 400", rec.Code)
	}
}

func TestExpenseEndpoints(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	cat, err := env.ledger.CreateCategory(ctx, core.Category{Name: "Food"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	rec := env.do(t, http.MethodPost, "/expenses",
		`{"amount":"25000","description":"lunch","date":"2025-03-12","categoryId":"`+cat.ID+`"}`, env.cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeData[core.Expense](t, rec)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"zero amount", `{"amount":"0","description":"x","categoryId":"` + cat.ID + `"}`, http.StatusBadRequest},
		{"missing description", `{"amount":"100","categoryId":"` + cat.ID + `"}`, http.StatusBadRequest},
		{"unknown category", `{"amount":"100","description":"x","categoryId":"missing"}`, http.StatusNotFound},
		{"bad date", `{"amount":"100","description":"x","date":"12/03/2025","categoryId":"` + cat.ID + `"}`, http.StatusBadRequest},
		{"malformed json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(t, http.MethodPost, "/expenses", tt.body, env.cookie); rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}

	rec = env.do(t, http.MethodGet, "/expenses?period=monthly&date=2025-03-01", "", env.cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	listed := decodeData[[]storage.ExpenseDetail](t, rec)
	if len(listed) != 1 || listed[0].CategoryName != "Food" {
		t.Errorf("listed = %+v, want one joined entry", listed)
	}

	if rec := env.do(t, http.MethodGet, "/expenses?period=yearly", "", env.cookie); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid period status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/expenses/"+created.ID, `{"amount":"30000"}`, env.cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodDelete, "/expenses/"+created.ID, "", env.cookie); rec.Code != http.StatusOK {
		t.Errorf("delete status = %d, want 200", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/expenses/"+created.ID, "", env.cookie); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	cat, err := env.ledger.CreateCategory(ctx, core.Category{Name: "Food"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	_, err = env.ledger.CreateExpense(ctx, core.Expense{
		Amount:      decimal.NewFromInt(4200000),
		Description: "rent",
		Date:        time.Now(),
		CategoryID:  cat.ID,
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	rec := env.do(t, http.MethodGet, "/dashboard/stats", "", env.cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	stats := decodeData[dashboardStatsResponse](t, rec)
	if stats.BudgetStatus != core.StatusCritical {
		t.Errorf("budgetStatus = %s, want critical", stats.BudgetStatus)
	}
	if !stats.RemainingBudget.Equal(decimal.NewFromInt(800000)) {
		t.Errorf("remainingBudget = %s, want 800000", stats.RemainingBudget)
	}
	if !stats.MonthlyExpenses.Equal(decimal.NewFromInt(4200000)) {
		t.Errorf("monthlyExpenses = %s, want 4200000", stats.MonthlyExpenses)
	}
}

func TestReportEndpoints(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	cat, err := env.ledger.CreateCategory(ctx, core.Category{Name: "Food"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	_, err = env.ledger.CreateExpense(ctx, core.Expense{
		Amount:      decimal.NewFromInt(40000),
		Description: "groceries",
		Date:        time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		CategoryID:  cat.ID,
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	if rec := env.do(t, http.MethodGet, "/reports/category-breakdown", "", env.cookie); rec.Code != http.StatusBadRequest {
		t.Errorf("missing window status = %d, want 400", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/reports/expenses?startDate=2025-03-01", "", env.cookie); rec.Code != http.StatusBadRequest {
		t.Errorf("half window status = %d, want 400", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/reports/category-breakdown?startDate=2025-03-01&endDate=2025-03-31", "", env.cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("breakdown status = %d", rec.Code)
	}
	slices := decodeData[[]services.CategorySlice](t, rec)
	if len(slices) != 1 || slices[0].Percentage != 100 {
		t.Errorf("breakdown = %+v, want single 100%% slice", slices)
	}

	// Window with no expenses is an empty list, not an error.
	rec = env.do(t, http.MethodGet, "/reports/expenses?startDate=2024-01-01&endDate=2024-01-31", "", env.cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty window status = %d", rec.Code)
	}
	if got := decodeData[[]storage.ExpenseDetail](t, rec); len(got) != 0 {
		t.Errorf("empty window returned %d entries", len(got))
	}
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/settings", "", env.cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("get settings status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "passwordHash") || strings.Contains(rec.Body.String(), "$2a$") {
		t.Errorf("settings response leaks password hash: %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodPatch, "/settings", `{"monthlyBudget":"7000000"}`, env.cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch settings status = %d, body = %s", rec.Code, rec.Body.String())
	}
	updated := decodeData[core.AppSettings](t, rec)
	if !updated.MonthlyBudget.Equal(decimal.NewFromInt(7000000)) {
		t.Errorf("monthlyBudget = %s, want 7000000", updated.MonthlyBudget)
	}
	if updated.Currency != core.DefaultCurrency {
		t.Errorf("currency = %q, want unchanged %q", updated.Currency, core.DefaultCurrency)
	}

	if rec := env.do(t, http.MethodPatch, "/settings", `{"monthlyBudget":"-1"}`, env.cookie); rec.Code != http.StatusBadRequest {
		t.Errorf("negative budget status = %d, want 400", rec.Code)
	}
}
