package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/helios-rules/helios/internal/adapter/outbound/evalstore"
	"github.com/helios-rules/helios/internal/domain/engine"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`            // "ready" or "not_ready"
	Checks  map[string]string `json:"checks"`            // Component check results
	Version string            `json:"version,omitempty"` // Optional version info
}

// HealthChecker reports readiness: ready means a non-empty model is loaded.
type HealthChecker struct {
	evaluator *engine.Evaluator
	store     *evalstore.Store
	version   string
}

// NewHealthChecker creates a HealthChecker. Pass nil for components that
// aren't configured.
func NewHealthChecker(evaluator *engine.Evaluator, store *evalstore.Store, version string) *HealthChecker {
	return &HealthChecker{evaluator: evaluator, store: store, version: version}
}

// Check performs health checks on all components.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)
	ready := false

	if h.evaluator != nil {
		if m := h.evaluator.Model(); m != nil && m.NumRules() > 0 {
			ready = true
			checks["model"] = fmt.Sprintf("ok: %d rules, %d predicates (fp %016x)",
				m.NumRules(), m.NumPredicates(), m.Fingerprint())
		} else {
			checks["model"] = "not loaded"
		}
	} else {
		checks["model"] = "not configured"
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if n, err := h.store.Count(ctx); err != nil {
			checks["store"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["store"] = fmt.Sprintf("ok: %d records", n)
		}
		cancel()
	} else {
		checks["store"] = "disabled"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "ready"
	if !ready {
		status = "not_ready"
	}

	return HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an HTTP handler for the health endpoint: 200 when a model
// is loaded, 503 otherwise.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(health)
	})
}
