package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/helios-rules/helios/internal/metrics"
	"github.com/helios-rules/helios/internal/service"
)

// Transport is the inbound adapter serving the evaluator over HTTP:
// POST /evaluate, GET /health, GET /metrics (when a metrics handler is
// configured).
type Transport struct {
	svc            *service.EvaluationService
	server         *http.Server
	addr           string
	logger         *slog.Logger
	registry       metrics.Registry
	metricsHandler http.Handler // e.g. promhttp for the prometheus provider
	healthChecker  *HealthChecker
}

// Option is a functional option for configuring Transport.
type Option func(*Transport)

// WithAddr sets the listen address. Default is "127.0.0.1:8080"
// (localhost only).
func WithAddr(addr string) Option {
	return func(t *Transport) { t.addr = addr }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) { t.logger = logger }
}

// WithMetricsRegistry sets the facade registry used by the request
// middleware.
func WithMetricsRegistry(reg metrics.Registry) Option {
	return func(t *Transport) { t.registry = reg }
}

// WithMetricsHandler mounts a handler at /metrics (e.g. the Prometheus
// exposition handler). Without it, /metrics returns 404.
func WithMetricsHandler(h http.Handler) Option {
	return func(t *Transport) { t.metricsHandler = h }
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *Transport) { t.healthChecker = hc }
}

// NewTransport creates an HTTP transport wrapping the evaluation service.
func NewTransport(svc *service.EvaluationService, opts ...Option) *Transport {
	t := &Transport{
		svc:      svc,
		addr:     "127.0.0.1:8080",
		logger:   slog.Default(),
		registry: metrics.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handler builds the route mux with the metrics middleware applied.
func (t *Transport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/evaluate", EvaluateHandler(t.svc, t.logger))
	if t.healthChecker != nil {
		mux.Handle("/health", t.healthChecker.Handler())
	}
	if t.metricsHandler != nil {
		mux.Handle("/metrics", t.metricsHandler)
	}
	return MetricsMiddleware(t.registry)(mux)
}

// Start begins serving. It blocks until the context is cancelled or the
// server fails, then shuts down gracefully.
func (t *Transport) Start(ctx context.Context) error {
	t.server = &http.Server{
		Addr:    t.addr,
		Handler: t.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		t.logger.Info("starting HTTP server", "addr", t.addr)
		err := t.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (t *Transport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}
	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *Transport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}
