package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"duit/internal/cache"
	"duit/internal/core"
	"duit/internal/storage"
)

// PeriodTotals are the headline sums shown on the dashboard.
type PeriodTotals struct {
	Today     decimal.Decimal `json:"today"`
	ThisWeek  decimal.Decimal `json:"thisWeek"`
	ThisMonth decimal.Decimal `json:"thisMonth"`
	AllTime   decimal.Decimal `json:"allTime"`
}

// CategorySlice is one category's share of spending within a period.
// Categories with no spending in the period are omitted.
type CategorySlice struct {
	CategoryID    string          `json:"categoryId"`
	Name          string          `json:"name"`
	Color         string          `json:"color"`
	Icon          string          `json:"icon"`
	Amount        decimal.Decimal `json:"amount"`
	Percentage    int             `json:"percentage"`
	OverThreshold bool            `json:"overThreshold"`
}

// DashboardStats bundles period totals with the evaluated budget position.
type DashboardStats struct {
	Totals   PeriodTotals      `json:"totals"`
	Budget   core.BudgetReport `json:"budget"`
	Currency string            `json:"currency"`
}

// ReportService computes aggregates over the ledger. Results are cached
// with a short TTL; every write through LedgerService clears the cache.
type ReportService struct {
	store      *storage.SQLiteStore
	totals     *cache.LRUCache[PeriodTotals]
	breakdowns *cache.LRUCache[[]CategorySlice]
}

func NewReportService(store *storage.SQLiteStore, mgr *cache.Manager, ttl time.Duration) *ReportService {
	s := &ReportService{
		store:      store,
		totals:     cache.NewLRUCache[PeriodTotals](64, ttl),
		breakdowns: cache.NewLRUCache[[]CategorySlice](64, ttl),
	}
	if mgr != nil {
		mgr.Register(s.totals)
		mgr.Register(s.breakdowns)
	}
	return s
}

// Invalidate drops all cached aggregates.
func (s *ReportService) Invalidate() {
	s.totals.Clear()
	s.breakdowns.Clear()
}

// TotalForRange sums expense amounts inside r; a nil range sums the whole
// ledger.
func (s *ReportService) TotalForRange(ctx context.Context, r *core.Range) (decimal.Decimal, error) {
	expenses, err := s.store.ListExpenses(ctx, r)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total, nil
}

// PeriodTotals computes today / this week / this month / all-time sums
// relative to now.
func (s *ReportService) PeriodTotals(ctx context.Context, now time.Time) (PeriodTotals, error) {
	key := "totals:" + now.Format("2006-01-02")
	if cached, ok := s.totals.Get(key); ok {
		return cached, nil
	}

	var out PeriodTotals
	ranges := []struct {
		period core.Period
		dst    *decimal.Decimal
	}{
		{core.Daily, &out.Today},
		{core.Weekly, &out.ThisWeek},
		{core.Monthly, &out.ThisMonth},
	}
	for _, rr := range ranges {
		r := core.ResolveRange(rr.period, now)
		total, err := s.TotalForRange(ctx, &r)
		if err != nil {
			return PeriodTotals{}, fmt.Errorf("total for %s: %w", rr.period, err)
		}
		*rr.dst = total
	}

	allTime, err := s.TotalForRange(ctx, nil)
	if err != nil {
		return PeriodTotals{}, fmt.Errorf("all-time total: %w", err)
	}
	out.AllTime = allTime

	s.totals.Set(key, out)
	return out, nil
}

// BreakdownFor computes the per-category breakdown for the period around
// anchor. Slices are ordered by amount descending; ties keep category
// creation order. Percentages are of the period total, rounded to whole
// numbers with halves away from zero.
func (s *ReportService) BreakdownFor(ctx context.Context, period core.Period, anchor time.Time) ([]CategorySlice, error) {
	key := fmt.Sprintf("breakdown:%s:%s", period, anchor.Format("2006-01-02"))
	if cached, ok := s.breakdowns.Get(key); ok {
		return cached, nil
	}

	r := core.ResolveRange(period, anchor)
	slices, err := s.breakdownForRange(ctx, &r)
	if err != nil {
		return nil, err
	}

	s.breakdowns.Set(key, slices)
	return slices, nil
}

// BreakdownBetween computes the breakdown for an explicit inclusive window.
// Report windows are arbitrary, so these results are not cached.
func (s *ReportService) BreakdownBetween(ctx context.Context, start, end time.Time) ([]CategorySlice, error) {
	r := core.Range{Start: start, End: end}
	return s.breakdownForRange(ctx, &r)
}

func (s *ReportService) breakdownForRange(ctx context.Context, r *core.Range) ([]CategorySlice, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpenses(ctx, r)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]decimal.Decimal, len(categories))
	total := decimal.Zero
	for _, e := range expenses {
		sums[e.CategoryID] = sums[e.CategoryID].Add(e.Amount)
		total = total.Add(e.Amount)
	}

	monthlyBudget := decimal.Zero
	settings, err := s.store.GetSettings(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if err == nil {
		monthlyBudget = settings.MonthlyBudget
	}

	slices := make([]CategorySlice, 0, len(categories))
	for _, c := range categories {
		amount := sums[c.ID]
		if amount.IsZero() {
			continue
		}
		slices = append(slices, CategorySlice{
			CategoryID:    c.ID,
			Name:          c.Name,
			Color:         c.Color,
			Icon:          c.Icon,
			Amount:        amount,
			Percentage:    core.RoundedPercentage(amount, total),
			OverThreshold: core.CategoryOverThreshold(amount, monthlyBudget),
		})
	}
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Amount.GreaterThan(slices[j].Amount)
	})

	return slices, nil
}

// ExpensesFor returns joined expenses for the period around anchor, newest
// first. limit <= 0 returns everything in the period.
func (s *ReportService) ExpensesFor(ctx context.Context, period core.Period, anchor time.Time, limit int) ([]storage.ExpenseDetail, error) {
	r := core.ResolveRange(period, anchor)
	return s.store.ListExpenseDetails(ctx, &r, limit)
}

// ExpensesBetween returns joined expenses inside an explicit inclusive
// window, newest first.
func (s *ReportService) ExpensesBetween(ctx context.Context, start, end time.Time) ([]storage.ExpenseDetail, error) {
	r := core.Range{Start: start, End: end}
	return s.store.ListExpenseDetails(ctx, &r, 0)
}

// RecentExpenses returns the newest ledger entries across all time.
func (s *ReportService) RecentExpenses(ctx context.Context, limit int) ([]storage.ExpenseDetail, error) {
	return s.store.ListExpenseDetails(ctx, nil, limit)
}

// DashboardStats combines period totals with the monthly budget evaluation.
func (s *ReportService) DashboardStats(ctx context.Context, now time.Time) (DashboardStats, error) {
	totals, err := s.PeriodTotals(ctx, now)
	if err != nil {
		return DashboardStats{}, err
	}

	budget := decimal.Zero
	currency := core.DefaultCurrency
	settings, err := s.store.GetSettings(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return DashboardStats{}, err
	}
	if err == nil {
		budget = settings.MonthlyBudget
		currency = settings.Currency
	}

	return DashboardStats{
		Totals:   totals,
		Budget:   core.EvaluateBudget(totals.ThisMonth, budget),
		Currency: currency,
	}, nil
}
