package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"duit/internal/auth"
	"duit/internal/config"
	"duit/internal/services"
	"duit/internal/storage"
)

// Server is the JSON API over the ledger. Every route except login and the
// health probes sits behind the session gate.
type Server struct {
	http.Server

	store   *storage.SQLiteStore
	reports *services.ReportService
	ledger  *services.LedgerService
	tokens  *auth.TokenManager

	rateLimiter   *rateLimiter
	secureCookies bool
	shutdownOnce  sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg *config.Config, store *storage.SQLiteStore, reports *services.ReportService, ledger *services.LedgerService, tokens *auth.TokenManager) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr(),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		store:         store,
		reports:       reports,
		ledger:        ledger,
		tokens:        tokens,
		rateLimiter:   newRateLimiter(cfg.RateLimitRPM),
		secureCookies: cfg.SecureCookies,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// Login is the only unauthenticated API route.
	mux.HandleFunc("POST /auth/login", s.withCommon(s.handleLogin))
	mux.HandleFunc("POST /auth/logout", s.protected(s.handleLogout))
	mux.HandleFunc("POST /auth/change-password", s.protected(s.handleChangePassword))

	mux.HandleFunc("GET /categories", s.protected(s.handleListCategories))
	mux.HandleFunc("POST /categories", s.protected(s.handleCreateCategory))
	mux.HandleFunc("GET /categories/{id}", s.protected(s.handleGetCategory))
	mux.HandleFunc("PATCH /categories/{id}", s.protected(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /categories/{id}", s.protected(s.handleDeleteCategory))

	mux.HandleFunc("GET /funding-sources", s.protected(s.handleListFundingSources))
	mux.HandleFunc("POST /funding-sources", s.protected(s.handleCreateFundingSource))
	mux.HandleFunc("GET /funding-sources/{id}", s.protected(s.handleGetFundingSource))
	mux.HandleFunc("PATCH /funding-sources/{id}", s.protected(s.handleUpdateFundingSource))
	mux.HandleFunc("DELETE /funding-sources/{id}", s.protected(s.handleDeleteFundingSource))

	mux.HandleFunc("GET /expenses", s.protected(s.handleListExpenses))
	mux.HandleFunc("POST /expenses", s.protected(s.handleCreateExpense))
	mux.HandleFunc("GET /expenses/{id}", s.protected(s.handleGetExpense))
	mux.HandleFunc("PATCH /expenses/{id}", s.protected(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /expenses/{id}", s.protected(s.handleDeleteExpense))

	mux.HandleFunc("GET /dashboard/stats", s.protected(s.handleDashboardStats))
	mux.HandleFunc("GET /dashboard/category-expenses", s.protected(s.handleCategoryExpenses))
	mux.HandleFunc("GET /dashboard/recent-expenses", s.protected(s.handleRecentExpenses))

	mux.HandleFunc("GET /reports/category-breakdown", s.protected(s.handleReportBreakdown))
	mux.HandleFunc("GET /reports/expenses", s.protected(s.handleReportExpenses))

	mux.HandleFunc("GET /settings", s.protected(s.handleGetSettings))
	mux.HandleFunc("PATCH /settings", s.protected(s.handleUpdateSettings))

	return s
}

// protected composes the common middleware with the session gate.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.withCommon(s.requireAuth(next))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
