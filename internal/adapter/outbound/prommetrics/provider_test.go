package prommetrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/helios-rules/helios/internal/metrics"
)

// gather returns the metric family with the given name, or nil.
func gather(t *testing.T, p *Provider, name string) *dto.MetricFamily {
	t.Helper()
	families, err := p.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestProviderIdentity(t *testing.T) {
	p := New("helios")
	if p.Name() != "prometheus" {
		t.Errorf("Name = %q", p.Name())
	}
	if p.Priority() <= 50 {
		t.Errorf("Priority = %d, must beat the otel provider", p.Priority())
	}
}

func TestCounterExposition(t *testing.T) {
	p := New("helios")
	reg := p.Registry()

	c := reg.Counter("helios.evaluator.events_total", metrics.Tag{Key: "result", Value: "matched"})
	c.Inc()
	c.Add(2)

	mf := gather(t, p, "helios_evaluator_events_total")
	if mf == nil {
		t.Fatal("counter family not exposed")
	}
	m := mf.GetMetric()[0]
	if got := m.GetCounter().GetValue(); got != 3 {
		t.Errorf("counter value = %v, want 3", got)
	}
	if labels := m.GetLabel(); len(labels) != 1 || labels[0].GetName() != "result" || labels[0].GetValue() != "matched" {
		t.Errorf("labels = %v, want result=matched", labels)
	}
}

func TestGaugeExposition(t *testing.T) {
	p := New("helios")
	g := p.Registry().Gauge("helios.model.num_rules")
	g.Set(5000)

	mf := gather(t, p, "helios_model_num_rules")
	if mf == nil {
		t.Fatal("gauge family not exposed")
	}
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 5000 {
		t.Errorf("gauge value = %v, want 5000", got)
	}
}

func TestTimerExposition(t *testing.T) {
	p := New("helios")
	tm := p.Registry().Timer("helios.evaluator.latency")
	tm.Record(2 * time.Millisecond)
	tm.Record(4 * time.Millisecond)

	mf := gather(t, p, "helios_evaluator_latency_seconds")
	if mf == nil {
		t.Fatal("histogram family not exposed")
	}
	h := mf.GetMetric()[0].GetHistogram()
	if got := h.GetSampleCount(); got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}

	if q := tm.Quantile(1); q != 4*time.Millisecond {
		t.Errorf("Quantile(1) = %v, want 4ms", q)
	}
}

func TestInstrumentsAreCached(t *testing.T) {
	p := New("helios")
	reg := p.Registry()

	a := reg.Counter("x", metrics.Tag{Key: "k", Value: "v"})
	b := reg.Counter("x", metrics.Tag{Key: "k", Value: "v"})
	if a != b {
		t.Error("same (name, tags) must return the same counter")
	}

	// Different tag values on one name share the vector without panicking.
	c := reg.Counter("x", metrics.Tag{Key: "k", Value: "w"})
	if c == a {
		t.Error("different tag values must return distinct counters")
	}
}
