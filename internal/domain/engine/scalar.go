// Package engine contains the compiled rule model and the counting matcher.
package engine

import (
	"fmt"
	"math"
)

// Kind identifies the runtime type of a Scalar.
type Kind uint8

const (
	// KindInvalid is the zero Kind; no valid Scalar carries it.
	KindInvalid Kind = iota
	// KindString is a string operand.
	KindString
	// KindInt is a 64-bit integer operand.
	KindInt
	// KindFloat is a 64-bit float operand.
	KindFloat
	// KindBool is a boolean operand.
	KindBool
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Scalar is a typed operand value. It is comparable and usable as a map key,
// which is what the equality index relies on. Integral floats are
// canonicalized to KindInt so that a rule written with value 1 and an event
// carrying 1.0 land on the same key.
type Scalar struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// StringScalar returns a string-kinded Scalar.
func StringScalar(v string) Scalar { return Scalar{kind: KindString, s: v} }

// IntScalar returns an int-kinded Scalar.
func IntScalar(v int64) Scalar { return Scalar{kind: KindInt, i: v} }

// FloatScalar returns a Scalar for a float value, canonicalizing integral
// floats to KindInt.
func FloatScalar(v float64) Scalar {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && v >= math.MinInt64 && v <= math.MaxInt64 {
		return Scalar{kind: KindInt, i: int64(v)}
	}
	return Scalar{kind: KindFloat, f: v}
}

// BoolScalar returns a bool-kinded Scalar.
func BoolScalar(v bool) Scalar { return Scalar{kind: KindBool, b: v} }

// ScalarOf converts a dynamically-typed value (as produced by JSON decoding
// or by embedders) into a Scalar. Supported types: string, bool, int,
// int8-int64, uint, uint8-uint32, float32 and float64; uint64 and uintptr
// are rejected as unsupported.
func ScalarOf(v any) (Scalar, error) {
	switch x := v.(type) {
	case string:
		return StringScalar(x), nil
	case bool:
		return BoolScalar(x), nil
	case int:
		return IntScalar(int64(x)), nil
	case int8:
		return IntScalar(int64(x)), nil
	case int16:
		return IntScalar(int64(x)), nil
	case int32:
		return IntScalar(int64(x)), nil
	case int64:
		return IntScalar(x), nil
	case uint:
		return IntScalar(int64(x)), nil
	case uint8:
		return IntScalar(int64(x)), nil
	case uint16:
		return IntScalar(int64(x)), nil
	case uint32:
		return IntScalar(int64(x)), nil
	case float32:
		return FloatScalar(float64(x)), nil
	case float64:
		return FloatScalar(x), nil
	default:
		return Scalar{}, fmt.Errorf("unsupported scalar type %T", v)
	}
}

// Kind returns the kind of the scalar.
func (s Scalar) Kind() Kind { return s.kind }

// Numeric reports whether the scalar is int- or float-kinded. Int and float
// operands belong to one family for type-compatibility checks.
func (s Scalar) Numeric() bool { return s.kind == KindInt || s.kind == KindFloat }

// String renders the scalar for logs and error messages.
func (s Scalar) String() string {
	switch s.kind {
	case KindString:
		return fmt.Sprintf("%q", s.s)
	case KindInt:
		return fmt.Sprintf("%d", s.i)
	case KindFloat:
		return fmt.Sprintf("%g", s.f)
	case KindBool:
		return fmt.Sprintf("%t", s.b)
	default:
		return "<invalid>"
	}
}

// kindCompatible reports whether an event value of kind vk can be compared
// against a field whose operands have kind fk. Int and float are mutually
// compatible; a non-canonical float against an int field is a value miss,
// not a type error.
func kindCompatible(fk, vk Kind) bool {
	if fk == vk {
		return true
	}
	return (fk == KindInt || fk == KindFloat) && (vk == KindInt || vk == KindFloat)
}
