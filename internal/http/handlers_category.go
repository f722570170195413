package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"duit/internal/core"
)

type categoryRequest struct {
	Name   *string          `json:"name"`
	Color  *string          `json:"color"`
	Icon   *string          `json:"icon"`
	Budget *decimal.Decimal `json:"budget"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	respondOK(w, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c := core.Category{Color: "#6B7280", Icon: "📦"}
	req.apply(&c)

	created, err := s.ledger.CreateCategory(r.Context(), c)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, created)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, c)
}

// handleUpdateCategory applies a partial update: absent fields keep their
// stored values.
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := s.store.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	req.apply(&c)

	updated, err := s.ledger.UpdateCategory(r.Context(), c)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, updated)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, nil)
}

func (req categoryRequest) apply(c *core.Category) {
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Color != nil {
		c.Color = *req.Color
	}
	if req.Icon != nil {
		c.Icon = *req.Icon
	}
	if req.Budget != nil {
		c.Budget = *req.Budget
	}
}
