package engine

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Model is the immutable compiled representation of a rulebase: the
// predicate table, the rule table, the posting lists, the field interner
// and the per-field value indexes. A Model is frozen by Build and read
// concurrently without locking; replacement happens by publishing a new
// Model reference.
type Model struct {
	predicates []Predicate
	ruleCodes  []string
	thresholds []int32
	required   [][]int32 // per rule, sorted predicate ids
	postings   [][]int32 // per predicate, sorted rule ids
	fields     map[string]int32
	fieldNames []string
	fieldIndex []ValueMap
	fp         uint64
}

// NumRules returns the number of compiled rules.
func (m *Model) NumRules() int { return len(m.ruleCodes) }

// NumPredicates returns the number of deduplicated predicates.
func (m *Model) NumPredicates() int { return len(m.predicates) }

// NumFields returns the number of interned field names.
func (m *Model) NumFields() int { return len(m.fieldNames) }

// RuleCode returns the externally-visible code of a rule.
func (m *Model) RuleCode(ruleID int32) string { return m.ruleCodes[ruleID] }

// Threshold returns the number of predicates a rule requires.
func (m *Model) Threshold(ruleID int32) int32 { return m.thresholds[ruleID] }

// RequiredPredicates returns the sorted predicate ids a rule requires.
// The returned slice is owned by the model and must not be mutated.
func (m *Model) RequiredPredicates(ruleID int32) []int32 { return m.required[ruleID] }

// RulesRequiring returns the ascending list of rule ids that require the
// given predicate. The returned slice is owned by the model.
func (m *Model) RulesRequiring(predID int32) []int32 { return m.postings[predID] }

// FieldID returns the interned id for a field name.
func (m *Model) FieldID(name string) (int32, bool) {
	id, ok := m.fields[name]
	return id, ok
}

// PredicatesForField returns the value index for an interned field id.
func (m *Model) PredicatesForField(fieldID int32) ValueMap { return m.fieldIndex[fieldID] }

// Fingerprint returns a stable xxhash of the compiled rulebase, used to
// identify a model in logs and invariant failures.
func (m *Model) Fingerprint() uint64 { return m.fp }

// Condition is one (field, operator, value) triple of a rule under
// compilation.
type Condition struct {
	Field string
	Op    Operator
	Value Scalar
}

// predKey identifies a predicate for deduplication across rules.
type predKey struct {
	field int32
	op    Operator
	val   Scalar
}

// Builder accumulates rules and freezes them into a Model. Not safe for
// concurrent use; build once, then share the Model.
type Builder struct {
	predicates []Predicate
	predIDs    map[predKey]int32
	ruleCodes  []string
	required   [][]int32
	fields     map[string]int32
	fieldNames []string
	fieldKinds []Kind
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		predIDs: make(map[predKey]int32),
		fields:  make(map[string]int32),
	}
}

// AddRule adds one rule. Rule ids are assigned densely in call order.
// Identical (field, operator, value) conditions across rules share one
// predicate id; duplicate conditions within a rule collapse, so the rule's
// threshold is the size of its distinct condition set.
func (b *Builder) AddRule(code string, conds []Condition) error {
	if code == "" {
		return fmt.Errorf("rule %d: empty rule_code", len(b.ruleCodes))
	}
	if len(conds) == 0 {
		return fmt.Errorf("rule %q: no conditions", code)
	}

	required := make([]int32, 0, len(conds))
	for _, c := range conds {
		if c.Op != OpEqualTo {
			return fmt.Errorf("rule %q: operator %s not supported yet", code, c.Op)
		}
		if c.Value.Kind() == KindInvalid {
			return fmt.Errorf("rule %q: field %q: invalid operand", code, c.Field)
		}
		fieldID, err := b.internField(c.Field, c.Value.Kind())
		if err != nil {
			return fmt.Errorf("rule %q: %w", code, err)
		}
		predID := b.internPredicate(predKey{field: fieldID, op: c.Op, val: c.Value})
		if !slices.Contains(required, predID) {
			required = append(required, predID)
		}
	}
	slices.Sort(required)

	b.ruleCodes = append(b.ruleCodes, code)
	b.required = append(b.required, required)
	return nil
}

// internField assigns or returns the dense id for a field name and pins the
// field's operand kind. Mixing kinds on one field is a compile error: the
// evaluator relies on a single expected kind per field for its type check.
// Int and float count as one numeric family.
func (b *Builder) internField(name string, kind Kind) (int32, error) {
	if name == "" {
		return 0, fmt.Errorf("empty field name")
	}
	if id, ok := b.fields[name]; ok {
		if !kindCompatible(b.fieldKinds[id], kind) {
			return 0, fmt.Errorf("field %q: operand kind %s conflicts with earlier %s",
				name, kind, b.fieldKinds[id])
		}
		return id, nil
	}
	id := int32(len(b.fieldNames))
	b.fields[name] = id
	b.fieldNames = append(b.fieldNames, name)
	b.fieldKinds = append(b.fieldKinds, kind)
	return id, nil
}

func (b *Builder) internPredicate(k predKey) int32 {
	if id, ok := b.predIDs[k]; ok {
		return id
	}
	id := int32(len(b.predicates))
	b.predIDs[k] = id
	b.predicates = append(b.predicates, Predicate{Field: k.field, Op: k.op, Operand: k.val})
	return id
}

// Build freezes the accumulated rules into an immutable Model: posting
// lists are derived as the exact inverse of the rule->predicate lists and
// sorted ascending, per-field value indexes are built, and the fingerprint
// is computed.
func (b *Builder) Build() (*Model, error) {
	m := &Model{
		predicates: b.predicates,
		ruleCodes:  b.ruleCodes,
		required:   b.required,
		thresholds: make([]int32, len(b.ruleCodes)),
		postings:   make([][]int32, len(b.predicates)),
		fields:     b.fields,
		fieldNames: b.fieldNames,
		fieldIndex: make([]ValueMap, len(b.fieldNames)),
	}

	for r, preds := range b.required {
		m.thresholds[r] = int32(len(preds))
		for _, p := range preds {
			m.postings[p] = append(m.postings[p], int32(r))
		}
	}
	for p := range m.postings {
		slices.Sort(m.postings[p])
	}

	for fieldID, kind := range b.fieldKinds {
		m.fieldIndex[fieldID] = newHashValueMap(kind)
	}
	for id, p := range b.predicates {
		hm, ok := m.fieldIndex[p.Field].(*hashValueMap)
		if !ok {
			return nil, fmt.Errorf("field %q: no equality index", b.fieldNames[p.Field])
		}
		hm.add(p.Operand, int32(id))
	}

	m.fp = b.fingerprint()
	return m, nil
}

// fingerprint hashes the canonical encoding of the rulebase.
func (b *Builder) fingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	writeInt := func(v int64) {
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		_, _ = h.Write(buf[:])
	}

	writeInt(int64(len(b.ruleCodes)))
	for r, code := range b.ruleCodes {
		_, _ = h.WriteString(code)
		_, _ = h.Write([]byte{0})
		for _, p := range b.required[r] {
			writeInt(int64(p))
		}
		_, _ = h.Write([]byte{0})
	}
	writeInt(int64(len(b.predicates)))
	for _, p := range b.predicates {
		_, _ = h.WriteString(b.fieldNames[p.Field])
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(p.Op.String())
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(strconv.Itoa(int(p.Operand.Kind())))
		_, _ = h.WriteString(p.Operand.String())
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
