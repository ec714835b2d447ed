// Package otelmetrics implements the metrics facade on OpenTelemetry.
package otelmetrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/helios-rules/helios/internal/metrics"
)

// scopeName is the instrumentation scope reported to the SDK.
const scopeName = "github.com/helios-rules/helios"

// Provider is the OpenTelemetry metrics provider. Instrument creation
// errors are swallowed (the instrument degrades to a no-op); metric sink
// failures never propagate to callers.
type Provider struct {
	registry *registry
}

// New creates a Provider over the given MeterProvider. The caller owns the
// MeterProvider lifecycle (reader, exporter, shutdown).
func New(mp metric.MeterProvider) *Provider {
	return &Provider{
		registry: &registry{
			meter:    mp.Meter(scopeName),
			counters: make(map[string]metrics.Counter),
			gauges:   make(map[string]metrics.Gauge),
			timers:   make(map[string]metrics.Timer),
		},
	}
}

// Name identifies the provider.
func (p *Provider) Name() string { return "otel" }

// Priority orders the provider for selection; loses to Prometheus.
func (p *Provider) Priority() int { return 50 }

// Registry returns the facade registry.
func (p *Provider) Registry() metrics.Registry { return p.registry }

type registry struct {
	meter metric.Meter

	mu       sync.Mutex
	counters map[string]metrics.Counter
	gauges   map[string]metrics.Gauge
	timers   map[string]metrics.Timer
}

// attrSet converts facade tags to an attribute option bound at
// registration time, keeping the hot path free of conversions.
func attrSet(tags []metrics.Tag) metric.MeasurementOption {
	kvs := make([]attribute.KeyValue, len(tags))
	for i, t := range tags {
		kvs[i] = attribute.String(t.Key, t.Value)
	}
	return metric.WithAttributeSet(attribute.NewSet(kvs...))
}

func (r *registry) Counter(name string, tags ...metrics.Tag) metrics.Counter {
	key := metrics.Key(name, tags)
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[key]; ok {
		return c
	}

	inst, err := r.meter.Float64Counter(name)
	var c metrics.Counter
	if err != nil {
		c = metrics.Nop().Counter(name)
	} else {
		c = &counter{inst: inst, attrs: attrSet(tags)}
	}
	r.counters[key] = c
	return c
}

func (r *registry) Gauge(name string, tags ...metrics.Tag) metrics.Gauge {
	key := metrics.Key(name, tags)
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[key]; ok {
		return g
	}

	inst, err := r.meter.Float64Gauge(name)
	var g metrics.Gauge
	if err != nil {
		g = metrics.Nop().Gauge(name)
	} else {
		g = &gauge{inst: inst, attrs: attrSet(tags)}
	}
	r.gauges[key] = g
	return g
}

func (r *registry) Timer(name string, tags ...metrics.Tag) metrics.Timer {
	key := metrics.Key(name, tags)
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[key]; ok {
		return t
	}

	inst, err := r.meter.Float64Histogram(name, metric.WithUnit("s"))
	var t metrics.Timer
	if err != nil {
		t = metrics.Nop().Timer(name)
	} else {
		t = &timer{inst: inst, attrs: attrSet(tags), window: metrics.NewSampleWindow(0)}
	}
	r.timers[key] = t
	return t
}

type counter struct {
	inst  metric.Float64Counter
	attrs metric.MeasurementOption
}

func (c *counter) Inc() { c.inst.Add(context.Background(), 1, c.attrs) }

func (c *counter) Add(delta float64) { c.inst.Add(context.Background(), delta, c.attrs) }

type gauge struct {
	inst  metric.Float64Gauge
	attrs metric.MeasurementOption
}

func (g *gauge) Set(v float64) { g.inst.Record(context.Background(), v, g.attrs) }

type timer struct {
	inst   metric.Float64Histogram
	attrs  metric.MeasurementOption
	window *metrics.SampleWindow
}

func (t *timer) Record(d time.Duration) {
	t.inst.Record(context.Background(), d.Seconds(), t.attrs)
	t.window.Record(d)
}

func (t *timer) Quantile(q float64) time.Duration {
	return t.window.Quantile(q)
}
