package value

import (
	"fmt"
	"reflect"
)

// Type identifies the concrete payload type of a value.
//
// Two Types are equal when they describe the same Go type. The zero Type
// means "not yet known" and is carried by mentioned values.
type Type struct {
	name string
	rt   reflect.Type
}

// Namer is implemented by payload types that provide their own user-facing
// type name. The method must work on the zero value (including nil pointers).
type Namer interface {
	TypeName() string
}

// builtinNames formats the scalar and vector types used by step arguments.
var builtinNames = map[reflect.Type]string{
	reflect.TypeFor[bool]():       "boolean",
	reflect.TypeFor[int64]():      "integer",
	reflect.TypeFor[float64]():    "real",
	reflect.TypeFor[complex128](): "complex",
	reflect.TypeFor[string]():     "text",
	reflect.TypeFor[[]int64]():    "vector of integer",
	reflect.TypeFor[[]float64]():  "vector of real",
	reflect.TypeFor[[]string]():   "vector of text",
}

// TypeOf returns the Type for T.
func TypeOf[T any]() Type {
	rt := reflect.TypeFor[T]()
	return Type{name: nameOf(rt), rt: rt}
}

// TypeOfValue returns the Type of a dynamic value. A nil value yields the
// zero Type.
func TypeOfValue(v any) Type {
	if v == nil {
		return Type{}
	}
	rt := reflect.TypeOf(v)
	return Type{name: nameOf(rt), rt: rt}
}

func nameOf(rt reflect.Type) string {
	if name, ok := builtinNames[rt]; ok {
		return name
	}
	if rt.Implements(reflect.TypeFor[Namer]()) {
		if n, ok := reflect.Zero(rt).Interface().(Namer); ok {
			return n.TypeName()
		}
	}
	return rt.String()
}

// Name returns the user-facing type name ("real", "tensor of complex", ...).
func (t Type) Name() string {
	return t.name
}

// IsZero reports whether the type is unknown.
func (t Type) IsZero() bool {
	return t.rt == nil
}

// Equal reports whether t and other describe the same Go type.
func (t Type) Equal(other Type) bool {
	return t.rt == other.rt
}

// Accepts reports whether v is a payload of exactly this type.
func (t Type) Accepts(v any) bool {
	return t.rt != nil && reflect.TypeOf(v) == t.rt
}

func (t Type) String() string {
	if t.IsZero() {
		return "unknown"
	}
	return t.name
}

// mismatch formats the standard type mismatch error.
func mismatch(name string, want, got Type) error {
	return fmt.Errorf("%w: %q is %s, requested %s", ErrTypeMismatch, name, got, want)
}
