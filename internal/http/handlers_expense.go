package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"duit/internal/core"
	"duit/internal/storage"
)

type expenseRequest struct {
	Amount          *decimal.Decimal `json:"amount"`
	Description     *string          `json:"description"`
	Date            *string          `json:"date"`
	CategoryID      *string          `json:"categoryId"`
	FundingSourceID *string          `json:"fundingSourceId"`
}

// handleListExpenses returns joined expenses for a period around an anchor
// date. The period defaults to monthly and the anchor to now.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	period, err := core.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	anchor := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, "invalid date, use RFC 3339 or YYYY-MM-DD", nil)
			return
		}
		anchor = parsed
	}

	expenses, err := s.reports.ExpensesFor(r.Context(), period, anchor, 0)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []storage.ExpenseDetail{}
	}
	respondOK(w, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	e := core.Expense{Date: time.Now()}
	if ok := req.apply(w, &e); !ok {
		return
	}

	created, err := s.ledger.CreateExpense(r.Context(), e)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, created)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.GetExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	e, err := s.store.GetExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if ok := req.apply(w, &e); !ok {
		return
	}

	updated, err := s.ledger.UpdateExpense(r.Context(), e)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, nil)
}

// apply copies request fields onto the expense, answering 400 itself when a
// date fails to parse.
func (req expenseRequest) apply(w http.ResponseWriter, e *core.Expense) bool {
	if req.Amount != nil {
		e.Amount = *req.Amount
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.CategoryID != nil {
		e.CategoryID = *req.CategoryID
	}
	if req.FundingSourceID != nil {
		e.FundingSourceID = *req.FundingSourceID
	}
	if req.Date != nil {
		parsed, err := parseDate(*req.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, "invalid date, use RFC 3339 or YYYY-MM-DD", nil)
			return false
		}
		e.Date = parsed
	}
	return true
}

// parseDate accepts RFC 3339 timestamps or bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
