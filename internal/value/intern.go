package value

import "weak"

// InternedString is an immutable byte sequence with identity equality:
// two Values holding the same *InternedString pointer are the same
// string. Go's garbage collector supplies the "owned by shared
// references" half of spec §3 for free — any Value or globals-map entry
// holding one of these keeps it alive; StringInterns below supplies only
// the weak side.
type InternedString struct {
	Text string
}

// StringInterns maps source text to a weak reference to its canonical
// InternedString, matching original_source/src/value/string_intern.rs's
// HashMap<String, Weak<str>> one-for-one: GetOrIntern upgrades the weak
// ref if it's still live, else mints a new InternedString and stores a
// fresh weak pointer to it.
type StringInterns struct {
	table map[string]weak.Pointer[InternedString]
}

func NewStringInterns() *StringInterns {
	return &StringInterns{table: make(map[string]weak.Pointer[InternedString])}
}

// GetOrIntern returns the canonical *InternedString for text, creating it
// if the table has no live entry for it.
func (s *StringInterns) GetOrIntern(text string) *InternedString {
	if wp, ok := s.table[text]; ok {
		if p := wp.Value(); p != nil {
			return p
		}
	}
	interned := &InternedString{Text: text}
	s.table[text] = weak.Make(interned)
	return interned
}

// BuildStringValue interns text and wraps it as a Value, matching the
// original's `build_string_value` convenience method.
func (s *StringInterns) BuildStringValue(text string) Value {
	return NewString(s.GetOrIntern(text))
}

// Clean drops every entry whose weak reference no longer resolves to a
// live *InternedString (spec §3 "clean()"). After Clean returns, every
// remaining entry's weak reference is live by construction.
func (s *StringInterns) Clean() {
	for text, wp := range s.table {
		if wp.Value() == nil {
			delete(s.table, text)
		}
	}
}

// Len reports the number of entries currently tracked, live or not; it
// exists for tests that assert on interner size.
func (s *StringInterns) Len() int {
	return len(s.table)
}
