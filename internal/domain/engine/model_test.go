package engine

import (
	"slices"
	"testing"
)

func mustBuild(t *testing.T, add func(b *Builder)) *Model {
	t.Helper()
	b := NewBuilder()
	add(b)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return m
}

func addRule(t *testing.T, b *Builder, code string, conds ...Condition) {
	t.Helper()
	if err := b.AddRule(code, conds); err != nil {
		t.Fatalf("AddRule(%s) failed: %v", code, err)
	}
}

func eq(field string, v Scalar) Condition {
	return Condition{Field: field, Op: OpEqualTo, Value: v}
}

func TestPredicateDeduplication(t *testing.T) {
	// Two rules sharing (A == "x") must share one predicate id.
	m := mustBuild(t, func(b *Builder) {
		addRule(t, b, "R1", eq("A", StringScalar("x")), eq("B", StringScalar("y")))
		addRule(t, b, "R2", eq("A", StringScalar("x")))
	})

	if got := m.NumPredicates(); got != 2 {
		t.Errorf("NumPredicates = %d, want 2", got)
	}
	if got := m.NumRules(); got != 2 {
		t.Errorf("NumRules = %d, want 2", got)
	}
}

func TestDuplicateConditionWithinRule(t *testing.T) {
	// A repeated condition collapses; the threshold counts distinct
	// predicates.
	m := mustBuild(t, func(b *Builder) {
		addRule(t, b, "R1", eq("A", StringScalar("x")), eq("A", StringScalar("x")))
	})
	if got := m.Threshold(0); got != 1 {
		t.Errorf("Threshold = %d, want 1", got)
	}
}

func TestPostingListInversion(t *testing.T) {
	// For all p, r: p in required[r] iff r in rulesRequiring(p).
	m := mustBuild(t, func(b *Builder) {
		addRule(t, b, "R1", eq("A", IntScalar(1)), eq("B", IntScalar(2)))
		addRule(t, b, "R2", eq("A", IntScalar(1)))
		addRule(t, b, "R3", eq("B", IntScalar(2)), eq("C", StringScalar("z")))
	})

	for r := int32(0); int(r) < m.NumRules(); r++ {
		for _, p := range m.RequiredPredicates(r) {
			if !slices.Contains(m.RulesRequiring(p), r) {
				t.Errorf("rule %d requires predicate %d but is absent from its posting list", r, p)
			}
		}
	}
	for p := int32(0); int(p) < m.NumPredicates(); p++ {
		for _, r := range m.RulesRequiring(p) {
			if !slices.Contains(m.RequiredPredicates(r), p) {
				t.Errorf("posting list of %d contains rule %d which does not require it", p, r)
			}
		}
	}
}

func TestPostingListsSorted(t *testing.T) {
	m := mustBuild(t, func(b *Builder) {
		addRule(t, b, "R1", eq("A", IntScalar(1)))
		addRule(t, b, "R2", eq("A", IntScalar(1)))
		addRule(t, b, "R3", eq("A", IntScalar(1)))
	})
	for p := int32(0); int(p) < m.NumPredicates(); p++ {
		if !slices.IsSorted(m.RulesRequiring(p)) {
			t.Errorf("posting list of predicate %d is not sorted", p)
		}
	}
}

func TestThresholdEqualsRequiredCount(t *testing.T) {
	m := mustBuild(t, func(b *Builder) {
		addRule(t, b, "R1", eq("A", IntScalar(1)), eq("B", IntScalar(2)), eq("C", IntScalar(3)))
		addRule(t, b, "R2", eq("A", IntScalar(1)))
	})
	for r := int32(0); int(r) < m.NumRules(); r++ {
		if got, want := m.Threshold(r), int32(len(m.RequiredPredicates(r))); got != want {
			t.Errorf("rule %d: threshold %d != |required| %d", r, got, want)
		}
		if m.Threshold(r) <= 0 {
			t.Errorf("rule %d: threshold must be positive", r)
		}
	}
}

func TestBuilderRejections(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		conds []Condition
	}{
		{"empty rule code", "", []Condition{eq("A", IntScalar(1))}},
		{"no conditions", "R1", nil},
		{"empty field", "R1", []Condition{eq("", IntScalar(1))}},
		{"unsupported operator", "R1", []Condition{{Field: "A", Op: OpIn, Value: IntScalar(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			if err := b.AddRule(tt.code, tt.conds); err == nil {
				t.Error("expected AddRule to fail")
			}
		})
	}
}

func TestMixedKindsOnOneFieldRejected(t *testing.T) {
	b := NewBuilder()
	addRule(t, b, "R1", eq("A", StringScalar("x")))
	if err := b.AddRule("R2", []Condition{eq("A", IntScalar(1))}); err == nil {
		t.Error("expected kind conflict error for field A")
	}
}

func TestNumericFamilySharesField(t *testing.T) {
	// Int and float operands on one field are a single numeric family.
	b := NewBuilder()
	addRule(t, b, "R1", eq("A", IntScalar(1)))
	if err := b.AddRule("R2", []Condition{eq("A", FloatScalar(1.5))}); err != nil {
		t.Errorf("numeric family should not conflict: %v", err)
	}
}

func TestFingerprintStability(t *testing.T) {
	build := func() *Model {
		return mustBuild(t, func(b *Builder) {
			addRule(t, b, "R1", eq("A", IntScalar(1)), eq("B", StringScalar("x")))
			addRule(t, b, "R2", eq("A", IntScalar(1)))
		})
	}
	m1, m2 := build(), build()
	if m1.Fingerprint() != m2.Fingerprint() {
		t.Error("identical rulebases must share a fingerprint")
	}

	m3 := mustBuild(t, func(b *Builder) {
		addRule(t, b, "R1", eq("A", IntScalar(2)), eq("B", StringScalar("x")))
		addRule(t, b, "R2", eq("A", IntScalar(2)))
	})
	if m1.Fingerprint() == m3.Fingerprint() {
		t.Error("different rulebases should not share a fingerprint")
	}
}

func TestFieldLookup(t *testing.T) {
	m := mustBuild(t, func(b *Builder) {
		addRule(t, b, "R1", eq("country", StringScalar("NL")))
	})

	id, ok := m.FieldID("country")
	if !ok {
		t.Fatal("FieldID(country) not found")
	}
	vm := m.PredicatesForField(id)
	if got := vm.Lookup(StringScalar("NL")); len(got) != 1 {
		t.Errorf("Lookup(NL) = %v, want one predicate", got)
	}
	if got := vm.Lookup(StringScalar("DE")); got != nil {
		t.Errorf("Lookup(DE) = %v, want nil", got)
	}
	if _, ok := m.FieldID("unknown"); ok {
		t.Error("FieldID(unknown) should not resolve")
	}
}
