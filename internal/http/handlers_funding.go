package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"duit/internal/core"
)

type fundingSourceRequest struct {
	Name    *string          `json:"name"`
	Type    *string          `json:"type"`
	Balance *decimal.Decimal `json:"balance"`
	Icon    *string          `json:"icon"`
}

func (s *Server) handleListFundingSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListFundingSources(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if sources == nil {
		sources = []core.FundingSource{}
	}
	respondOK(w, sources)
}

func (s *Server) handleCreateFundingSource(w http.ResponseWriter, r *http.Request) {
	var req fundingSourceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var f core.FundingSource
	req.apply(&f)

	created, err := s.ledger.CreateFundingSource(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, created)
}

func (s *Server) handleGetFundingSource(w http.ResponseWriter, r *http.Request) {
	f, err := s.store.GetFundingSource(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, f)
}

func (s *Server) handleUpdateFundingSource(w http.ResponseWriter, r *http.Request) {
	var req fundingSourceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	f, err := s.store.GetFundingSource(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	req.apply(&f)

	updated, err := s.ledger.UpdateFundingSource(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, updated)
}

func (s *Server) handleDeleteFundingSource(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteFundingSource(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, nil)
}

func (req fundingSourceRequest) apply(f *core.FundingSource) {
	if req.Name != nil {
		f.Name = *req.Name
	}
	if req.Type != nil {
		f.Type = core.SourceType(*req.Type)
	}
	if req.Balance != nil {
		f.Balance = *req.Balance
	}
	if req.Icon != nil {
		f.Icon = *req.Icon
	}
}
