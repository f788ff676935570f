// Package handlers exposes the scheduling core over HTTP. Handlers
// stay thin: decode, call the booking service, translate its error
// taxonomy onto status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/clinicore/dentbook/services/clinic-api/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps booking errors onto HTTP status codes. Anything not
// in the taxonomy is a 500 and is logged; taxonomy errors carry
// client-safe messages.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *booking.ValidationError
	var conflict *booking.ConflictError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &conflict):
		http.Error(w, conflict.Error(), http.StatusConflict)
	case errors.Is(err, booking.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, booking.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, booking.ErrInvalidState):
		http.Error(w, "appointment state does not allow this operation", http.StatusUnprocessableEntity)
	default:
		logger.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
