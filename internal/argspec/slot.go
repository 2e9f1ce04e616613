package argspec

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/orca/internal/value"
)

// Direction says whether a slot is read or written by the step.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "output"
	}
	return "input"
}

// MarshalText renders the direction for JSON and YAML reports.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Kind says how a slot is bound.
type Kind int

const (
	// Literal slots take a constant from the plan. A "$key" string binds a
	// store reference of the slot's type instead.
	Literal Kind = iota
	// Reference slots always name a store key.
	Reference
)

func (k Kind) String() string {
	if k == Reference {
		return "reference"
	}
	return "literal"
}

// check is a named predicate on a coerced literal.
type check struct {
	desc string
	fn   func(any) bool
}

// Slot declares one named argument. Slots are built with Value or Ref and
// refined with the chaining methods; New copies them, so a Slot must not
// be modified after it has been passed to New.
type Slot struct {
	name       string
	doc        string
	dir        Direction
	kind       Kind
	types      []value.Type
	required   bool
	def        any
	hasDefault bool
	checks     []check
}

// Value declares a literal slot of type t.
func Value(name, doc string, t value.Type) *Slot {
	return &Slot{name: name, doc: doc, kind: Literal, types: []value.Type{t}}
}

// Ref declares a slot bound to a store key holding one of types. No types
// means any type is accepted.
func Ref(name, doc string, types ...value.Type) *Slot {
	return &Slot{name: name, doc: doc, kind: Reference, types: slices.Clone(types)}
}

// Required marks the slot as mandatory.
func (s *Slot) Required() *Slot {
	s.required = true
	return s
}

// Default sets the value used when the slot is omitted. For reference
// slots the default is a store key.
func (s *Slot) Default(v any) *Slot {
	s.def = v
	s.hasDefault = true
	return s
}

// OneOf restricts a literal to the listed values.
func (s *Slot) OneOf(values ...any) *Slot {
	allowed := slices.Clone(values)
	parts := make([]string, len(allowed))
	for i, v := range allowed {
		parts[i] = fmt.Sprint(v)
	}
	return s.Satisfies("one of "+strings.Join(parts, ", "), func(v any) bool {
		for _, a := range allowed {
			if reflect.DeepEqual(a, v) {
				return true
			}
			if as, ok := a.(string); ok {
				if vs, ok := v.(string); ok && Normalize(as) == Normalize(vs) {
					return true
				}
			}
		}
		return false
	})
}

// Positive requires a numeric literal greater than zero. For vectors
// every element must be positive.
func (s *Slot) Positive() *Slot {
	return s.Satisfies("positive", positive)
}

// Satisfies adds a predicate on the coerced literal.
func (s *Slot) Satisfies(desc string, fn func(any) bool) *Slot {
	s.checks = append(s.checks, check{desc: desc, fn: fn})
	return s
}

func positive(v any) bool {
	switch x := v.(type) {
	case int64:
		return x > 0
	case float64:
		return x > 0
	case []int64:
		for _, e := range x {
			if e <= 0 {
				return false
			}
		}
		return true
	case []float64:
		for _, e := range x {
			if e <= 0 {
				return false
			}
		}
		return true
	}
	return false
}

// Name returns the declared name.
func (s *Slot) Name() string { return s.name }

// Doc returns the documentation line.
func (s *Slot) Doc() string { return s.doc }

// Direction returns In or Out.
func (s *Slot) Direction() Direction { return s.dir }

// Kind returns Literal or Reference.
func (s *Slot) Kind() Kind { return s.kind }

// Types returns a copy of the accepted types.
func (s *Slot) Types() []value.Type { return slices.Clone(s.types) }

// IsRequired reports whether the slot must be bound.
func (s *Slot) IsRequired() bool { return s.required }

// DefaultValue returns the default and whether one was declared.
func (s *Slot) DefaultValue() (any, bool) { return s.def, s.hasDefault }

// Accepts reports whether t is one of the slot's types. A reference slot
// without types accepts anything.
func (s *Slot) Accepts(t value.Type) bool {
	if len(s.types) == 0 {
		return true
	}
	for _, st := range s.types {
		if st.Equal(t) {
			return true
		}
	}
	return false
}

// TypeNames renders the accepted types as "a | b".
func (s *Slot) TypeNames() string {
	if len(s.types) == 0 {
		return "any"
	}
	names := make([]string, len(s.types))
	for i, t := range s.types {
		names[i] = t.Name()
	}
	return strings.Join(names, " | ")
}

func (s *Slot) clone(dir Direction) *Slot {
	c := *s
	c.dir = dir
	c.types = slices.Clone(s.types)
	c.checks = slices.Clone(s.checks)
	return &c
}
