package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/helios-rules/helios/internal/metrics"
)

func jsonBody(s string) io.Reader { return strings.NewReader(s) }

func TestTransportStartAndShutdown(t *testing.T) {
	// goleak.VerifyNone will fail if the server goroutine leaks after
	// shutdown.
	defer goleak.VerifyNone(t)

	svc := newTestService(t, true)
	transport := NewTransport(svc,
		httpAddrOption(t),
		WithLogger(discardLogger()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- transport.Start(ctx) }()

	// Give the listener a moment, then stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// httpAddrOption picks an ephemeral localhost port.
func httpAddrOption(t *testing.T) Option {
	t.Helper()
	return WithAddr("127.0.0.1:0")
}

func TestTransportRoutes(t *testing.T) {
	svc := newTestService(t, true)
	transport := NewTransport(svc,
		WithLogger(discardLogger()),
		WithMetricsRegistry(metrics.Nop()),
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})),
	)
	h := transport.Handler()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/evaluate", http.StatusOK},
		{http.MethodGet, "/evaluate", http.StatusMethodNotAllowed},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		var req *http.Request
		if tt.method == http.MethodPost {
			req = httptest.NewRequest(tt.method, tt.path,
				jsonBody(`{"event_type":"order","attributes":{"A":"x"}}`))
		} else {
			req = httptest.NewRequest(tt.method, tt.path, nil)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}

func TestMetricsMiddlewareRecords(t *testing.T) {
	reg := &countingRegistry{Registry: metrics.Nop()}
	h := MetricsMiddleware(reg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	if reg.counters == 0 || reg.timers == 0 {
		t.Error("middleware did not record request metrics")
	}

	// /health and /metrics are skipped.
	before := reg.counters
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if reg.counters != before {
		t.Error("middleware must skip /health")
	}
}

// countingRegistry counts instrument fetches to observe middleware usage.
type countingRegistry struct {
	metrics.Registry
	counters int
	timers   int
}

func (r *countingRegistry) Counter(name string, tags ...metrics.Tag) metrics.Counter {
	r.counters++
	return r.Registry.Counter(name, tags...)
}

func (r *countingRegistry) Timer(name string, tags ...metrics.Tag) metrics.Timer {
	r.timers++
	return r.Registry.Timer(name, tags...)
}
