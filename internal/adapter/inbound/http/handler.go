// Package http provides the HTTP transport adapter for the evaluator.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/helios-rules/helios/internal/domain/engine"
	"github.com/helios-rules/helios/internal/service"
)

// errorResponse is the JSON body of a non-200 response.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// EvaluateHandler serves POST /evaluate.
func EvaluateHandler(svc *service.EvaluationService, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}

		var req service.EvaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
			return
		}

		resp, err := svc.Evaluate(r.Context(), req)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// writeError maps engine errors to HTTP status codes: InvalidEvent -> 400
// with the offending field, ModelNotLoaded -> 503, anything else -> 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var invalid *engine.InvalidEventError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: invalid.Error(), Field: invalid.Field})
	case errors.Is(err, engine.ErrModelNotLoaded):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "model not loaded"})
	default:
		logger.Error("evaluation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
