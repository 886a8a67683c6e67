// Package value implements the Lox value model: a tagged union of
// Number/Bool/Nil/String plus the weak-reference string interner that
// backs identity-based string equality (spec §3).
package value

import "fmt"

type Kind int

const (
	KindNumber Kind = iota
	KindBool
	KindNil
	KindString
)

// Value is a small tagged union, mirroring the teacher's Value struct
// (internal/value/value.go in estevaofon-noxy) but trimmed to exactly the
// four variants spec §3 names — no VAL_FUNCTION/VAL_NATIVE/VAL_OBJ, since
// functions-as-values and heap objects beyond strings are Non-goals.
type Value struct {
	Kind   Kind
	Number float64
	Bool   bool
	Str    *InternedString
}

func NewNumber(n float64) Value { return Value{Kind: KindNumber, Number: n} }
func NewBool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func NewNil() Value             { return Value{Kind: KindNil} }
func NewString(s *InternedString) Value {
	return Value{Kind: KindString, Str: s}
}

// IsFalsey reports whether v is Nil or Bool(false); every other value is
// truthy (spec §3).
func (v Value) IsFalsey() bool {
	return v.Kind == KindNil || (v.Kind == KindBool && !v.Bool)
}

// Equal implements spec §3's cross-tag-is-always-false equality: Number by
// numeric equality, Bool/Nil by tag, String by reference identity (which
// interning makes meaningful).
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Number == other.Number
	case KindBool:
		return v.Bool == other.Bool
	case KindNil:
		return true
	case KindString:
		return v.Str == other.Str
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return formatNumber(v.Number)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindNil:
		return "nil"
	case KindString:
		return v.Str.Text
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	// Lox prints integral floats without a trailing ".0", same as clox's
	// printf("%g", ...); Go's 'g' verb matches that behavior directly.
	return fmt.Sprintf("%g", n)
}
