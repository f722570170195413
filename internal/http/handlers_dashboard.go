package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"duit/internal/core"
	"duit/internal/services"
	"duit/internal/storage"
)

// recentLimit is how many ledger entries the dashboard shows.
const recentLimit = 10

type dashboardStatsResponse struct {
	TotalExpenses   decimal.Decimal   `json:"totalExpenses"`
	TodayExpenses   decimal.Decimal   `json:"todayExpenses"`
	WeeklyExpenses  decimal.Decimal   `json:"weeklyExpenses"`
	MonthlyExpenses decimal.Decimal   `json:"monthlyExpenses"`
	MonthlyBudget   decimal.Decimal   `json:"monthlyBudget"`
	RemainingBudget decimal.Decimal   `json:"remainingBudget"`
	BudgetStatus    core.BudgetStatus `json:"budgetStatus"`
	Currency        string            `json:"currency"`
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reports.DashboardStats(r.Context(), time.Now())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, dashboardStatsResponse{
		TotalExpenses:   stats.Totals.AllTime,
		TodayExpenses:   stats.Totals.Today,
		WeeklyExpenses:  stats.Totals.ThisWeek,
		MonthlyExpenses: stats.Totals.ThisMonth,
		MonthlyBudget:   stats.Budget.Budget,
		RemainingBudget: stats.Budget.Remaining,
		BudgetStatus:    stats.Budget.Status,
		Currency:        stats.Currency,
	})
}

// handleCategoryExpenses returns the current month's per-category breakdown
// with over-budget alert flags.
func (s *Server) handleCategoryExpenses(w http.ResponseWriter, r *http.Request) {
	slices, err := s.reports.BreakdownFor(r.Context(), core.Monthly, time.Now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if slices == nil {
		slices = []services.CategorySlice{}
	}
	respondOK(w, slices)
}

func (s *Server) handleRecentExpenses(w http.ResponseWriter, r *http.Request) {
	recent, err := s.reports.RecentExpenses(r.Context(), recentLimit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if recent == nil {
		recent = []storage.ExpenseDetail{}
	}
	respondOK(w, recent)
}
