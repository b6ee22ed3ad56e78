package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dispatch-sim/dispatch-sim/sim"
	"github.com/dispatch-sim/dispatch-sim/sim/store"
)

// apiError is the body of every non-2xx response.
type apiError struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondJSON(w, status, apiError{Error: msg, RequestID: RequestIDFromContext(r.Context())})
}

// statusFor maps engine and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sim.ErrInvalidEntity), errors.Is(err, sim.ErrUnknownPolicy):
		return http.StatusBadRequest
	case errors.Is(err, sim.ErrUnresolvedWorkcenter), errors.Is(err, sim.ErrPolicyContract):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
