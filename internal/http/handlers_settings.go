package http

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type settingsRequest struct {
	MonthlyBudget *decimal.Decimal `json:"monthlyBudget"`
	Currency      *string          `json:"currency"`
}

// handleGetSettings returns the settings row; the password hash never
// leaves the server.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, settings)
}

// handleUpdateSettings applies a partial update to budget and currency.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	budget := settings.MonthlyBudget
	currency := settings.Currency
	if req.MonthlyBudget != nil {
		budget = *req.MonthlyBudget
	}
	if req.Currency != nil {
		currency = *req.Currency
	}

	updated, err := s.ledger.UpdateSettings(r.Context(), budget, currency)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, updated)
}
