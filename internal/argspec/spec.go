package argspec

import (
	"fmt"
	"slices"
)

// Spec is the closed declaration of a step's inputs and outputs. It is
// immutable once built and shared by every instance of the step.
type Spec struct {
	inputs  []*Slot
	outputs []*Slot
	index   map[string]*Slot
}

// New builds a Spec. Slot names must be unique after normalization;
// outputs must be reference slots and literal defaults must coerce to
// the slot type.
func New(inputs, outputs []*Slot) (*Spec, error) {
	s := &Spec{index: make(map[string]*Slot, len(inputs)+len(outputs))}
	add := func(slot *Slot, dir Direction) error {
		if slot.name == "" {
			return fmt.Errorf("%s slot without a name", dir)
		}
		key := Normalize(slot.name)
		if prev, ok := s.index[key]; ok {
			return fmt.Errorf("slot %q clashes with %s %q", slot.name, prev.dir, prev.name)
		}
		c := slot.clone(dir)
		if dir == Out && c.kind != Reference {
			return fmt.Errorf("output %q must be a reference slot", slot.name)
		}
		if c.kind == Literal && len(c.types) != 1 {
			return fmt.Errorf("literal %q needs exactly one type", slot.name)
		}
		if c.hasDefault {
			def, err := c.coerceDefault()
			if err != nil {
				return fmt.Errorf("default of %q: %w", slot.name, err)
			}
			c.def = def
		}
		s.index[key] = c
		if dir == In {
			s.inputs = append(s.inputs, c)
		} else {
			s.outputs = append(s.outputs, c)
		}
		return nil
	}
	for _, slot := range inputs {
		if err := add(slot, In); err != nil {
			return nil, err
		}
	}
	for _, slot := range outputs {
		if err := add(slot, Out); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustNew is like New but panics. Step packages use it for their
// package-level specs.
func MustNew(inputs, outputs []*Slot) *Spec {
	s, err := New(inputs, outputs)
	if err != nil {
		panic(fmt.Sprintf("argspec: %v", err))
	}
	return s
}

// Inputs returns the input slots in declaration order.
func (s *Spec) Inputs() []*Slot { return slices.Clone(s.inputs) }

// Outputs returns the output slots in declaration order.
func (s *Spec) Outputs() []*Slot { return slices.Clone(s.outputs) }

// Slot finds a slot by (normalized) name.
func (s *Spec) Slot(name string) (*Slot, bool) {
	slot, ok := s.index[Normalize(name)]
	return slot, ok
}

// DefaultFor returns the default of an optional input, or false when the
// input is unknown, required, or has no default.
func (s *Spec) DefaultFor(name string) (any, bool) {
	slot, ok := s.Slot(name)
	if !ok || slot.dir != In || slot.required {
		return nil, false
	}
	return slot.DefaultValue()
}

// coerceDefault normalizes a literal default to the slot type, and checks
// reference defaults are keys.
func (s *Slot) coerceDefault() (any, error) {
	if s.kind == Reference {
		key, ok := s.def.(string)
		if !ok || trimRef(key) == "" {
			return nil, fmt.Errorf("reference default must be a store key, got %T", s.def)
		}
		return trimRef(key), nil
	}
	v, ok := coerce(s.def, s.types[0])
	if !ok {
		return nil, fmt.Errorf("%s is not %s", describe(s.def), s.types[0].Name())
	}
	return v, nil
}
