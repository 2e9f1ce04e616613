package argspec

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// Binding is one resolved argument of a configured step.
type Binding struct {
	Slot *Slot
	// Key is the store key of a reference binding; empty for literals.
	Key string
	// Literal is the coerced constant of a literal binding.
	Literal any
	// Defaulted is set when the slot was omitted and its default applied.
	Defaulted bool
}

// IsRef reports whether the binding names a store key.
func (b Binding) IsRef() bool { return b.Key != "" }

// Bindings is the resolved argument list of one configured step.
type Bindings struct {
	spec   *Spec
	byName map[string]Binding
}

// Spec returns the specification the bindings were resolved against.
func (b *Bindings) Spec() *Spec { return b.spec }

// Get returns the binding of a slot. Omitted optional slots without a
// default are not bound.
func (b *Bindings) Get(name string) (Binding, bool) {
	if b == nil {
		return Binding{}, false
	}
	bd, ok := b.byName[Normalize(name)]
	return bd, ok
}

// Inputs returns the bound inputs in declaration order.
func (b *Bindings) Inputs() []Binding { return b.collect(b.spec.inputs) }

// Outputs returns the bound outputs in declaration order.
func (b *Bindings) Outputs() []Binding { return b.collect(b.spec.outputs) }

func (b *Bindings) collect(slots []*Slot) []Binding {
	var out []Binding
	for _, slot := range slots {
		if bd, ok := b.byName[Normalize(slot.name)]; ok {
			out = append(out, bd)
		}
	}
	return out
}

// Validate checks raw plan arguments against s. It returns every
// problem found joined into one error, or nil.
func (s *Spec) Validate(step string, in, out map[string]any) error {
	_, err := s.Bind(step, in, out)
	return err
}

// Bind resolves raw plan arguments. in and out map argument names to
// decoded plan values: store keys for reference slots ("$" optional),
// constants or "$key" references for literal slots. All problems are
// collected; on error no Bindings are returned.
func (s *Spec) Bind(step string, in, out map[string]any) (*Bindings, error) {
	b := &Bindings{spec: s, byName: make(map[string]Binding)}
	var errs []error
	fail := func(code string, slot *Slot, dir Direction, name string, err error, expected, got string) {
		if slot != nil {
			name, dir = slot.name, slot.dir
		}
		errs = append(errs, &ArgumentError{
			Code: code, Step: step, Direction: dir, Argument: name,
			Expected: expected, Got: got, Err: err,
		})
	}

	provide := func(dir Direction, args map[string]any) {
		for _, name := range sortedKeys(args) {
			raw := args[name]
			slot, ok := s.Slot(name)
			if !ok || slot.dir != dir {
				fail(CodeUnknownName, nil, dir, name, ErrUnknownName, "", "")
				continue
			}
			key := Normalize(slot.name)
			if _, dup := b.byName[key]; dup {
				fail(CodeInvalidValue, slot, dir, name, ErrInvalidValue, "a single binding", "several")
				continue
			}
			bd, err := slot.bind(raw)
			if err != nil {
				errs = append(errs, withStep(err, step))
				continue
			}
			b.byName[key] = bd
		}
	}
	provide(In, in)
	provide(Out, out)

	for _, slot := range slices.Concat(s.inputs, s.outputs) {
		key := Normalize(slot.name)
		if _, ok := b.byName[key]; ok {
			continue
		}
		if slot.required {
			fail(CodeMissingRequired, slot, slot.dir, "", ErrMissingRequired, slot.TypeNames(), "")
			continue
		}
		if slot.hasDefault {
			bd := Binding{Slot: slot, Defaulted: true}
			if slot.kind == Reference {
				bd.Key = slot.def.(string)
			} else {
				bd.Literal = slot.def
			}
			b.byName[key] = bd
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return b, nil
}

// bind resolves one raw argument for this slot.
func (s *Slot) bind(raw any) (Binding, error) {
	fail := func(code string, err error, expected, got string) (Binding, error) {
		return Binding{}, &ArgumentError{
			Code: code, Direction: s.dir, Argument: s.name,
			Expected: expected, Got: got, Err: err,
		}
	}
	if s.kind == Reference {
		key, ok := raw.(string)
		if !ok || trimRef(key) == "" {
			return fail(CodeBadReference, ErrTypeMismatch, "store key", describe(raw))
		}
		return Binding{Slot: s, Key: trimRef(key)}, nil
	}
	if key, ok := isRef(raw); ok {
		if key == "" {
			return fail(CodeBadReference, ErrTypeMismatch, "store key", "empty reference")
		}
		return Binding{Slot: s, Key: key}, nil
	}
	v, ok := coerce(raw, s.types[0])
	if !ok {
		return fail(CodeTypeMismatch, ErrTypeMismatch, s.types[0].Name(), describe(raw))
	}
	for _, c := range s.checks {
		if !c.fn(v) {
			return fail(CodeInvalidValue, ErrInvalidValue, c.desc, fmt.Sprint(v))
		}
	}
	return Binding{Slot: s, Literal: v}, nil
}

func withStep(err error, step string) error {
	var ae *ArgumentError
	if errors.As(err, &ae) {
		ae.Step = step
	}
	return err
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
