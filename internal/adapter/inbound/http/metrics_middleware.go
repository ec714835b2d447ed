package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/helios-rules/helios/internal/metrics"
)

// MetricsMiddleware wraps an HTTP handler to record request metrics through
// the facade:
//   - helios.http.requests_total counter (by method and status class)
//   - helios.http.request_duration timer (by method)
//
// The /metrics and /health endpoints are skipped.
func MetricsMiddleware(reg metrics.Registry) func(http.Handler) http.Handler {
	if reg == nil {
		reg = metrics.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			reg.Counter("helios.http.requests_total",
				metrics.Tag{Key: "method", Value: r.Method},
				metrics.Tag{Key: "status", Value: statusClass(wrapped.status)},
			).Inc()
			reg.Timer("helios.http.request_duration",
				metrics.Tag{Key: "method", Value: r.Method},
			).Record(time.Since(start))
		})
	}
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush delegates to the underlying ResponseWriter if it supports
// http.Flusher.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// statusClass buckets status codes to keep label cardinality bounded.
func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
