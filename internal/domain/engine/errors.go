package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrModelNotLoaded is returned when Evaluate is called before a
	// non-empty model has been installed.
	ErrModelNotLoaded = errors.New("model not loaded")

	// ErrInvalidEvent is the class of all event validation failures.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrModelInvariant is the class of corrupt-model failures.
	ErrModelInvariant = errors.New("model invariant violated")
)

// InvalidEventError reports an event that failed validation: a duplicate
// field, an unsupported value type, or a value whose kind disagrees with
// the model's operand kind for that field.
type InvalidEventError struct {
	// Field is the offending attribute name.
	Field string
	// Reason describes the failure.
	Reason string
}

// Error returns a human-readable description of the validation failure.
func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid event: field %q: %s", e.Field, e.Reason)
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrInvalidEvent).
func (e *InvalidEventError) Is(target error) bool {
	return target == ErrInvalidEvent
}

// ModelInvariantError reports a corrupt model: a predicate id from the value
// index, or a rule id in a posting list, that is out of range for the
// evaluation context. Fatal for the evaluation; callers must not attempt
// repair.
type ModelInvariantError struct {
	// Fingerprint identifies the corrupt model in logs.
	Fingerprint uint64
	// PredicateID is the out-of-range predicate id when RuleID is -1, else
	// the predicate whose posting list held the bad rule id.
	PredicateID int32
	// RuleID is the out-of-range rule id, or -1 when the predicate id itself
	// is out of range.
	RuleID int32
}

// Error returns a human-readable description of the invariant violation.
func (e *ModelInvariantError) Error() string {
	if e.RuleID < 0 {
		return fmt.Sprintf("model invariant violated: predicate id %d out of range (model %016x)",
			e.PredicateID, e.Fingerprint)
	}
	return fmt.Sprintf("model invariant violated: rule id %d out of range in posting list of predicate %d (model %016x)",
		e.RuleID, e.PredicateID, e.Fingerprint)
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrModelInvariant).
func (e *ModelInvariantError) Is(target error) bool {
	return target == ErrModelInvariant
}
