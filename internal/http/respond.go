package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"duit/internal/auth"
	"duit/internal/core"
	applog "duit/internal/log"
	"duit/internal/storage"
)

// envelope is the uniform JSON response shape: code mirrors the HTTP
// status, message is human-readable, data carries the payload when there
// is one.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Code: status, Message: message, Data: data}); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, "success", data)
}

func respondCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, "created", data)
}

var validationErrs = []error{
	core.ErrInvalidAmount,
	core.ErrNegativeBudget,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrEmptyName,
	core.ErrEmptyCategory,
	core.ErrEmptyCurrency,
	core.ErrInvalidType,
	core.ErrInvalidPeriod,
}

// respondError maps domain and storage errors onto the envelope. Unknown
// errors are logged and answered with an opaque 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, "not found", nil)
	case errors.Is(err, storage.ErrConflict):
		writeJSON(w, http.StatusConflict, "already exists", nil)
	case errors.Is(err, storage.ErrIntegrity):
		writeJSON(w, http.StatusBadRequest, "cannot delete: still referenced by expenses", nil)
	case errors.Is(err, auth.ErrWrongPassword), errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, "unauthorized", nil)
	case isValidationErr(err):
		writeJSON(w, http.StatusBadRequest, rootMessage(err), nil)
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, "internal server error", nil)
	}
}

func isValidationErr(err error) bool {
	for _, v := range validationErrs {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// rootMessage strips the "op:" wrapping layers so clients see the sentinel
// text, not internal call paths.
func rootMessage(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}
		err = unwrapped
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}
