package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	httpadapter "github.com/helios-rules/helios/internal/adapter/inbound/http"
	"github.com/helios-rules/helios/internal/adapter/outbound/evalstore"
	"github.com/helios-rules/helios/internal/adapter/outbound/otelmetrics"
	"github.com/helios-rules/helios/internal/adapter/outbound/prommetrics"
	"github.com/helios-rules/helios/internal/config"
	"github.com/helios-rules/helios/internal/domain/engine"
	"github.com/helios-rules/helios/internal/metrics"
	"github.com/helios-rules/helios/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the evaluation HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe wires the full server: logger, metrics provider, model load,
// record store, evaluation service and HTTP transport, then blocks until
// SIGINT/SIGTERM.
func runServe(parent context.Context, cfg *config.Config) error {
	level := cfg.SlogLevel()
	if cfg.DevMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, metricsHandler, cleanup, err := buildMetrics(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	evaluator := engine.NewEvaluator(reg, logger)
	manager := service.NewModelManager(evaluator, cfg.Rules.Path, cfg.Rules.MaxRules, logger)
	if err := manager.Load(ctx); err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	var store *evalstore.Store
	if cfg.Store.Enabled {
		store, err = evalstore.Open(cfg.Store.Path, cfg.Store.MaxRecords, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("evaluation record store enabled", "path", cfg.Store.Path)
	}

	svc := service.NewEvaluationService(evaluator, store, logger)

	transport := httpadapter.NewTransport(svc,
		httpadapter.WithAddr(cfg.Server.HTTPAddr),
		httpadapter.WithLogger(logger),
		httpadapter.WithMetricsRegistry(reg),
		httpadapter.WithMetricsHandler(metricsHandler),
		httpadapter.WithHealthChecker(httpadapter.NewHealthChecker(evaluator, store, Version)),
	)

	return transport.Start(ctx)
}

// buildMetrics selects the metrics provider per config. "auto" builds every
// available provider and lets priority selection pick; "none" yields the
// no-op registry.
func buildMetrics(cfg *config.Config, logger *slog.Logger) (metrics.Registry, http.Handler, func(), error) {
	cleanup := func() {}

	newProm := func() (*prommetrics.Provider, http.Handler) {
		p := prommetrics.New(cfg.Metrics.Namespace)
		h := promhttp.HandlerFor(p.Gatherer(), promhttp.HandlerOpts{Registry: p.Gatherer()})
		return p, h
	}
	newOtel := func() (*otelmetrics.Provider, func(), error) {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, nil, fmt.Errorf("otel exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))),
		)
		shutdown := func() {
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mp.Shutdown(shCtx); err != nil {
				logger.Warn("otel meter provider shutdown failed", "error", err)
			}
		}
		return otelmetrics.New(mp), shutdown, nil
	}

	switch cfg.Metrics.Provider {
	case "none":
		return metrics.Nop(), nil, cleanup, nil
	case "prometheus":
		p, h := newProm()
		logger.Info("metrics provider selected", "provider", p.Name())
		return metrics.Select(p), h, cleanup, nil
	case "otel":
		p, shutdown, err := newOtel()
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("metrics provider selected", "provider", p.Name())
		return metrics.Select(p), nil, shutdown, nil
	default: // auto: highest priority wins
		promProvider, h := newProm()
		otelProvider, shutdown, err := newOtel()
		if err != nil {
			// Degrade to Prometheus alone.
			logger.Warn("otel provider unavailable", "error", err)
			return metrics.Select(promProvider), h, cleanup, nil
		}
		logger.Info("metrics provider selected", "provider", promProvider.Name())
		return metrics.Select(promProvider, otelProvider), h, shutdown, nil
	}
}
