package http

import (
	"net/http"
	"time"

	"duit/internal/services"
	"duit/internal/storage"
)

// reportWindow parses the startDate/endDate query pair. Both are required;
// the window is inclusive, with endDate stretched to the end of its day.
func reportWindow(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	startStr := r.URL.Query().Get("startDate")
	endStr := r.URL.Query().Get("endDate")
	if startStr == "" || endStr == "" {
		writeJSON(w, http.StatusBadRequest, "startDate and endDate are required", nil)
		return
	}

	start, err := parseDate(startStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, "invalid startDate, use RFC 3339 or YYYY-MM-DD", nil)
		return
	}
	end, err = parseDate(endStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, "invalid endDate, use RFC 3339 or YYYY-MM-DD", nil)
		return
	}

	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(999*time.Millisecond), end.Location())
	return start, end, true
}

// handleReportBreakdown returns the per-category breakdown for an explicit
// date window. An empty window is an empty list, not an error.
func (s *Server) handleReportBreakdown(w http.ResponseWriter, r *http.Request) {
	start, end, ok := reportWindow(w, r)
	if !ok {
		return
	}

	slices, err := s.reports.BreakdownBetween(r.Context(), start, end)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if slices == nil {
		slices = []services.CategorySlice{}
	}
	respondOK(w, slices)
}

func (s *Server) handleReportExpenses(w http.ResponseWriter, r *http.Request) {
	start, end, ok := reportWindow(w, r)
	if !ok {
		return
	}

	expenses, err := s.reports.ExpensesBetween(r.Context(), start, end)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []storage.ExpenseDetail{}
	}
	respondOK(w, expenses)
}
