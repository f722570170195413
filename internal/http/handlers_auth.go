package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"duit/internal/auth"
	"duit/internal/storage"
)

type loginRequest struct {
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// handleLogin verifies the password against the settings row and sets the
// session cookie. An already-authenticated caller short-circuits without a
// password check.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.authenticated(r) {
		respondOK(w, map[string]bool{"alreadyAuthenticated": true})
		return
	}

	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, "password is required", nil)
		return
	}

	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, "application not initialized", nil)
			return
		}
		respondError(w, r, err)
		return
	}

	if err := auth.VerifyPassword(settings.PasswordHash, req.Password); err != nil {
		slog.WarnContext(r.Context(), "Login failed", "client_ip", extractClientIP(r))
		writeJSON(w, http.StatusUnauthorized, "wrong password", nil)
		return
	}

	token, err := s.tokens.Issue(time.Now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.setSessionCookie(w, token)

	slog.InfoContext(r.Context(), "Login succeeded", "client_ip", extractClientIP(r))
	respondOK(w, map[string]bool{"success": true})
}

// handleLogout clears the cookie. Tokens are stateless, so an old cookie
// the client kept remains valid until it expires.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	respondOK(w, map[string]bool{"success": true})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeJSON(w, http.StatusBadRequest, "current and new password are required", nil)
		return
	}
	if len(req.NewPassword) < 6 {
		writeJSON(w, http.StatusBadRequest, "new password must be at least 6 characters", nil)
		return
	}

	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := auth.VerifyPassword(settings.PasswordHash, req.CurrentPassword); err != nil {
		writeJSON(w, http.StatusUnauthorized, "wrong password", nil)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.store.UpdatePasswordHash(r.Context(), hash); err != nil {
		respondError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Password changed")
	respondOK(w, map[string]bool{"success": true})
}
