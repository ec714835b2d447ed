package engine

// ValueMap is the per-field half of the predicate index: given an event
// value, it yields the ids of predicates on this field satisfied by that
// value. The concrete index type is chosen per field at compile time —
// equality predicates get a hash index; a sorted index slots in here for
// range operators without changing the contract.
type ValueMap interface {
	// Lookup returns the predicate ids satisfied by v. The returned slice
	// is owned by the model and must not be mutated.
	Lookup(v Scalar) []int32
	// Kind returns the operand kind shared by this field's predicates.
	Kind() Kind
}

// hashValueMap is the equality index: typed operand -> predicate ids.
type hashValueMap struct {
	kind    Kind
	byValue map[Scalar][]int32
}

func newHashValueMap(kind Kind) *hashValueMap {
	return &hashValueMap{kind: kind, byValue: make(map[Scalar][]int32)}
}

func (m *hashValueMap) add(v Scalar, predID int32) {
	m.byValue[v] = append(m.byValue[v], predID)
}

// Lookup returns the predicate ids whose operand equals v.
func (m *hashValueMap) Lookup(v Scalar) []int32 {
	return m.byValue[v]
}

// Kind returns the operand kind of this field.
func (m *hashValueMap) Kind() Kind { return m.kind }
