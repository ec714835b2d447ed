// Package prommetrics implements the metrics facade on Prometheus.
package prommetrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/helios-rules/helios/internal/metrics"
)

// Provider is the Prometheus metrics provider. It wins selection over the
// OpenTelemetry provider when both are configured.
type Provider struct {
	reg      *prometheus.Registry
	registry *registry
}

// New creates a Provider with its own Prometheus registry, including the
// standard Go and process collectors. The namespace prefixes every metric
// (e.g. "helios").
func New(namespace string) *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Provider{
		reg: reg,
		registry: &registry{
			namespace:  namespace,
			reg:        reg,
			counters:   make(map[string]metrics.Counter),
			gauges:     make(map[string]metrics.Gauge),
			timers:     make(map[string]metrics.Timer),
			counterVec: make(map[string]*prometheus.CounterVec),
			gaugeVec:   make(map[string]*prometheus.GaugeVec),
			histoVec:   make(map[string]*prometheus.HistogramVec),
		},
	}
}

// Name identifies the provider.
func (p *Provider) Name() string { return "prometheus" }

// Priority orders the provider for selection.
func (p *Provider) Priority() int { return 100 }

// Registry returns the facade registry.
func (p *Provider) Registry() metrics.Registry { return p.registry }

// Gatherer exposes the underlying registry for the /metrics endpoint.
func (p *Provider) Gatherer() *prometheus.Registry { return p.reg }

// registry caches instruments by (name, tags); Prometheus vectors are
// created once per metric name with the tag keys as labels.
type registry struct {
	namespace string
	reg       *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]metrics.Counter
	gauges     map[string]metrics.Gauge
	timers     map[string]metrics.Timer
	counterVec map[string]*prometheus.CounterVec
	gaugeVec   map[string]*prometheus.GaugeVec
	histoVec   map[string]*prometheus.HistogramVec
}

// sanitize converts dotted metric names to the Prometheus character set.
func sanitize(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

// fullName applies the namespace unless the sanitized name already carries
// it; the core's metric names are pre-prefixed with "helios.".
func (r *registry) fullName(name string) string {
	s := sanitize(name)
	if r.namespace == "" || strings.HasPrefix(s, r.namespace+"_") {
		return s
	}
	return r.namespace + "_" + s
}

// labelPairs splits tags into sorted label names and the matching values.
func labelPairs(tags []metrics.Tag) ([]string, []string) {
	sorted := make([]metrics.Tag, len(tags))
	copy(sorted, tags)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	names := make([]string, len(sorted))
	values := make([]string, len(sorted))
	for i, t := range sorted {
		names[i] = t.Key
		values[i] = t.Value
	}
	return names, values
}

func (r *registry) Counter(name string, tags ...metrics.Tag) metrics.Counter {
	key := metrics.Key(name, tags)
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[key]; ok {
		return c
	}

	labels, values := labelPairs(tags)
	vec, ok := r.counterVec[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: r.fullName(name),
			Help: name,
		}, labels)
		r.reg.MustRegister(vec)
		r.counterVec[name] = vec
	}
	c := vec.WithLabelValues(values...)
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

	labels, values := labelPairs(tags)
	vec, ok := r.gaugeVec[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: r.fullName(name),
			Help: name,
		}, labels)
		r.reg.MustRegister(vec)
		r.gaugeVec[name] = vec
	}
	g := vec.WithLabelValues(values...)
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

	labels, values := labelPairs(tags)
	vec, ok := r.histoVec[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    r.fullName(name) + "_seconds",
			Help:    name,
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12), // 1us to ~4s
		}, labels)
		r.reg.MustRegister(vec)
		r.histoVec[name] = vec
	}
	t := &timer{
		observer: vec.WithLabelValues(values...),
		window:   metrics.NewSampleWindow(0),
	}
	r.timers[key] = t
	return t
}

// timer observes seconds into a histogram and keeps a sample window for
// quantile queries.
type timer struct {
	observer prometheus.Observer
	window   *metrics.SampleWindow
}

func (t *timer) Record(d time.Duration) {
	t.observer.Observe(d.Seconds())
	t.window.Record(d)
}

func (t *timer) Quantile(q float64) time.Duration {
	return t.window.Quantile(q)
}
