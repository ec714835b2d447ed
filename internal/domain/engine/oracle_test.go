package engine

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"reflect"
	"testing"
)

// TestMatchesAgainstBruteForceOracle cross-checks the counting matcher
// against a direct per-rule conjunction check over random models and
// events. This pins the counter-equality law end to end: a rule matches
// iff every required predicate holds.
func TestMatchesAgainstBruteForceOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	type rule struct {
		code  string
		conds map[string]Scalar
	}

	b := NewBuilder()
	var rules []rule
	for i := 0; i < 200; i++ {
		numConds := 1 + rng.Intn(3)
		conds := make(map[string]Scalar, numConds)
		var cs []Condition
		for len(conds) < numConds {
			field := fmt.Sprintf("f%d", rng.Intn(8))
			if _, ok := conds[field]; ok {
				continue
			}
			v := IntScalar(int64(rng.Intn(6)))
			conds[field] = v
			cs = append(cs, Condition{Field: field, Op: OpEqualTo, Value: v})
		}
		code := fmt.Sprintf("R%03d", i)
		if err := b.AddRule(code, cs); err != nil {
			t.Fatalf("AddRule failed: %v", err)
		}
		rules = append(rules, rule{code: code, conds: conds})
	}
	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	e := NewEvaluator(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.Install(m)

	for trial := 0; trial < 500; trial++ {
		numAttrs := 1 + rng.Intn(8)
		values := make(map[string]Scalar, numAttrs)
		var as []Attribute
		for len(values) < numAttrs {
			field := fmt.Sprintf("f%d", rng.Intn(10))
			if _, ok := values[field]; ok {
				continue
			}
			v := int64(rng.Intn(6))
			values[field] = IntScalar(v)
			as = append(as, Attribute{Name: field, Value: v})
		}

		var want []string
		for _, r := range rules { // insert order == ascending rule id
			all := true
			for field, operand := range r.conds {
				if v, ok := values[field]; !ok || v != operand {
					all = false
					break
				}
			}
			if all {
				want = append(want, r.code)
			}
		}

		got, err := e.Evaluate(Event{Attributes: as})
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		if !reflect.DeepEqual(got.MatchedRuleCodes, want) {
			t.Fatalf("trial %d: matcher disagrees with oracle\nevent: %v\ngot:  %v\nwant: %v",
				trial, as, got.MatchedRuleCodes, want)
		}
	}
}
