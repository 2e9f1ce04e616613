package value

import (
	"fmt"
	"slices"
	"sync/atomic"
)

// Stage is the lifecycle state of a Value.
type Stage int

const (
	// Mentioned: the name is referenced, nothing is attached yet.
	Mentioned Stage = iota
	// Declared: type and shape are known (dry run), no payload is held.
	Declared
	// Allocated: a real payload is attached.
	Allocated
	// Freed: the payload was released; the name is kept for reporting.
	Freed
)

func (s Stage) String() string {
	switch s {
	case Mentioned:
		return "mentioned"
	case Declared:
		return "declared"
	case Allocated:
		return "allocated"
	case Freed:
		return "freed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Meta describes what a value holds, or what a dry run says it would hold.
type Meta struct {
	Type  Type
	Shape []int
	Bytes int64
}

// Releaser is implemented by payloads that own resources which must be
// returned when the value is erased or overwritten.
type Releaser interface {
	Release() error
}

// Sizer is implemented by payloads that can report their byte footprint.
type Sizer interface {
	ByteSize() int64
}

// Shaper is implemented by payloads with a shape (tensors).
type Shaper interface {
	Shape() []int
}

// Value is one named entry in a Store.
type Value struct {
	id      int64
	name    string
	stage   Stage
	meta    Meta
	payload any
}

// lastID is shared by every Store, so ids stay unique across the runs of
// one process.
var lastID atomic.Int64

func newValue(name string) *Value {
	return &Value{id: lastID.Add(1), name: name, stage: Mentioned}
}

// ID returns the process-unique id assigned at creation.
func (v *Value) ID() int64 { return v.id }

// Name returns the store key.
func (v *Value) Name() string { return v.name }

// Stage returns the lifecycle stage.
func (v *Value) Stage() Stage { return v.stage }

// Type returns the attached or declared type; zero while mentioned.
func (v *Value) Type() Type { return v.meta.Type }

// Meta returns a copy of the value metadata.
func (v *Value) Meta() Meta {
	m := v.meta
	m.Shape = slices.Clone(v.meta.Shape)
	return m
}

// TypeName returns a human-readable type description. Mentioned values use
// their name since no type is attached yet.
func (v *Value) TypeName() string {
	if v.meta.Type.IsZero() {
		return v.name + " of yet unknown type"
	}
	return v.meta.Type.Name()
}

// Payload returns the attached payload, or nil unless allocated.
func (v *Value) Payload() any {
	if v.stage != Allocated {
		return nil
	}
	return v.payload
}

// Summary renders the value for reports: scalars by value, everything
// else by type and shape.
func (v *Value) Summary() string {
	switch v.stage {
	case Mentioned:
		return v.TypeName()
	case Allocated:
		switch p := v.payload.(type) {
		case bool, int64, float64, complex128, string, []int64, []float64, []string:
			return fmt.Sprintf("%v", p)
		}
	}
	if len(v.meta.Shape) > 0 {
		return fmt.Sprintf("%s %v", v.meta.Type.Name(), v.meta.Shape)
	}
	return v.meta.Type.Name()
}

// metaOf derives metadata from a concrete payload.
func metaOf(p any) Meta {
	m := Meta{Type: TypeOfValue(p)}
	if s, ok := p.(Shaper); ok {
		m.Shape = slices.Clone(s.Shape())
	}
	if s, ok := p.(Sizer); ok {
		m.Bytes = s.ByteSize()
	}
	return m
}
