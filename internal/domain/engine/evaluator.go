package engine

import (
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/helios-rules/helios/internal/metrics"
)

// Metric names emitted by the evaluator.
const (
	MetricEventsTotal         = "helios.evaluator.events_total"
	MetricPredicatesEvaluated = "helios.evaluator.predicates_evaluated_total"
	MetricLatency             = "helios.evaluator.latency"
	MetricModelNumRules       = "helios.model.num_rules"
	MetricModelNumPredicates  = "helios.model.num_predicates"
)

// Evaluator is the counting matcher: given an event, it returns the codes
// of all rules whose required predicates the event satisfies. The model
// reference is read exactly once per call from an atomic pointer, so a
// concurrent Install never tears an in-flight evaluation. Evaluation is
// CPU-bound, lock-free and allocation-free in steady state aside from the
// result.
type Evaluator struct {
	model  atomic.Pointer[Model]
	pool   *Pool
	logger *slog.Logger

	evMatched   metrics.Counter
	evUnmatched metrics.Counter
	evInvalid   metrics.Counter
	predsTotal  metrics.Counter
	latency     metrics.Timer
	numRules    metrics.Gauge
	numPreds    metrics.Gauge
}

// NewEvaluator creates an Evaluator recording through the given registry.
// A nil registry defaults to the no-op registry; a nil logger defaults to
// slog.Default(). Metric instruments are created once here, never on the
// hot path.
func NewEvaluator(reg metrics.Registry, logger *slog.Logger) *Evaluator {
	if reg == nil {
		reg = metrics.Nop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		pool:        NewPool(),
		logger:      logger,
		evMatched:   reg.Counter(MetricEventsTotal, metrics.Tag{Key: "result", Value: "matched"}),
		evUnmatched: reg.Counter(MetricEventsTotal, metrics.Tag{Key: "result", Value: "unmatched"}),
		evInvalid:   reg.Counter(MetricEventsTotal, metrics.Tag{Key: "result", Value: "invalid"}),
		predsTotal:  reg.Counter(MetricPredicatesEvaluated),
		latency:     reg.Timer(MetricLatency),
		numRules:    reg.Gauge(MetricModelNumRules),
		numPreds:    reg.Gauge(MetricModelNumPredicates),
	}
}

// Install publishes a new model. In-flight evaluations keep the reference
// they loaded at entry; subsequent calls observe the new model.
func (e *Evaluator) Install(m *Model) {
	e.model.Store(m)
	if m != nil {
		e.numRules.Set(float64(m.NumRules()))
		e.numPreds.Set(float64(m.NumPredicates()))
	}
}

// Model returns the currently installed model, or nil.
func (e *Evaluator) Model() *Model {
	return e.model.Load()
}

// IsReady reports whether a non-empty model is loaded.
func (e *Evaluator) IsReady() bool {
	m := e.model.Load()
	return m != nil && m.NumRules() > 0
}

// Evaluate matches one event against the installed model.
//
// Duplicate attribute names and values whose kind disagrees with the
// model's operand kind for a known field fail with an InvalidEventError.
// Unknown fields are skipped. An id out of range in a posting list is a
// ModelInvariantError: the model is corrupt, the evaluation is aborted and
// no repair is attempted.
func (e *Evaluator) Evaluate(ev Event) (MatchResult, error) {
	start := time.Now()

	m := e.model.Load()
	if m == nil || m.NumRules() == 0 {
		return MatchResult{}, ErrModelNotLoaded
	}

	// Duplicate detection happens before the context is touched. Events
	// carry a handful of attributes, so the quadratic scan stays cheaper
	// than a set and allocates nothing.
	attrs := ev.Attributes
	for i := 1; i < len(attrs); i++ {
		for j := 0; j < i; j++ {
			if attrs[i].Name == attrs[j].Name {
				e.evInvalid.Inc()
				return MatchResult{}, &InvalidEventError{Field: attrs[i].Name, Reason: "duplicate field"}
			}
		}
	}

	ctx := e.pool.Acquire(m)
	defer e.pool.Release(ctx)

	for _, attr := range attrs {
		fieldID, ok := m.FieldID(attr.Name)
		if !ok {
			continue
		}
		val, err := ScalarOf(attr.Value)
		if err != nil {
			e.evInvalid.Inc()
			return MatchResult{}, &InvalidEventError{Field: attr.Name, Reason: err.Error()}
		}
		vm := m.PredicatesForField(fieldID)
		if !kindCompatible(vm.Kind(), val.Kind()) {
			e.evInvalid.Inc()
			return MatchResult{}, &InvalidEventError{
				Field:  attr.Name,
				Reason: "value kind " + val.Kind().String() + " does not match operand kind " + vm.Kind().String(),
			}
		}
		for _, predID := range vm.Lookup(val) {
			if int(predID) >= ctx.numPreds {
				return MatchResult{}, e.invariantViolated(m, predID, -1)
			}
			if !ctx.markTrue(predID) {
				continue
			}
			for _, ruleID := range m.RulesRequiring(predID) {
				if int(ruleID) >= len(ctx.counters) {
					return MatchResult{}, e.invariantViolated(m, predID, ruleID)
				}
				ctx.counters[ruleID]++
				ctx.touchRule(ruleID)
			}
		}
	}

	// Posting lists are per-predicate sorted, but touch order across
	// predicates is arbitrary; sort in place for the ascending-id result
	// contract.
	slices.Sort(ctx.touched)

	var matched []string
	for _, ruleID := range ctx.touched {
		if ctx.counters[ruleID] == m.Threshold(ruleID) {
			matched = append(matched, m.RuleCode(ruleID))
		}
	}

	wall := time.Since(start)
	e.predsTotal.Add(float64(ctx.activated))
	e.latency.Record(wall)
	if len(matched) > 0 {
		e.evMatched.Inc()
	} else {
		e.evUnmatched.Inc()
	}

	return MatchResult{
		EventID:             ev.EventID,
		MatchedRuleCodes:    matched,
		PredicatesEvaluated: ctx.activated,
		WallNanos:           wall.Nanoseconds(),
	}, nil
}

// invariantViolated builds the fatal corrupt-model error and logs it with
// the model fingerprint.
func (e *Evaluator) invariantViolated(m *Model, predID, ruleID int32) error {
	err := &ModelInvariantError{Fingerprint: m.Fingerprint(), PredicateID: predID, RuleID: ruleID}
	e.logger.Error("model invariant violated",
		"model_fingerprint", m.Fingerprint(),
		"predicate_id", predID,
		"rule_id", ruleID,
	)
	return err
}
