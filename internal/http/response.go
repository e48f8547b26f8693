package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
	applog "github.com/alfonsoemoreno/predicacion-tracker/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps the core error taxonomy to HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"url", r.URL.Path,
			"error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, core.ErrReportNotFound),
		errors.Is(err, core.ErrActivityNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrAlreadyComplete),
		errors.Is(err, core.ErrNotLastReport),
		errors.Is(err, core.ErrMonthLocked):
		return http.StatusConflict
	case errors.Is(err, core.ErrConstraintViolation),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidMinutes),
		errors.Is(err, core.ErrInvalidClock),
		errors.Is(err, core.ErrEmptyName):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
