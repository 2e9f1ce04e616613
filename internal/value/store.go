package value

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
)

// Footprint reports the bytes held (or promised, in a dry run) by a store.
type Footprint struct {
	Current int64
	Peak    int64
}

// Store is the name-keyed registry of values for one run.
//
// Overwrite policy: setting a payload on an Allocated name first releases
// the previous payload (if it is a Releaser). The new payload must have the
// same type; rebinding a name to a different type requires Erase first.
type Store struct {
	values  map[string]*Value
	current int64
	peak    int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]*Value)}
}

// Mention returns the value for name, creating a Mentioned entry if absent.
func (s *Store) Mention(name string) *Value {
	if v, ok := s.values[name]; ok {
		return v
	}
	v := newValue(name)
	s.values[name] = v
	return v
}

// Declare records the type and shape a value will have without attaching a
// payload. Used by dry runs. Declaring a name that already carries a
// different type fails with ErrDuplicateName.
func (s *Store) Declare(name string, meta Meta) (*Value, error) {
	if meta.Type.IsZero() {
		return nil, fmt.Errorf("declare %q: type is required", name)
	}
	v := s.Mention(name)
	if !v.meta.Type.IsZero() && v.stage != Freed && !v.meta.Type.Equal(meta.Type) {
		return nil, fmt.Errorf("%w: %q is %s, declared as %s", ErrDuplicateName, name, v.meta.Type, meta.Type)
	}
	if v.stage == Allocated {
		// Already real; a dry declaration adds nothing.
		return v, nil
	}
	s.account(held(v), meta.Bytes)
	v.meta = Meta{Type: meta.Type, Shape: slices.Clone(meta.Shape), Bytes: meta.Bytes}
	v.stage = Declared
	return v, nil
}

// Lookup returns the value for name or ErrNotFound.
func (s *Store) Lookup(name string) (*Value, error) {
	v, ok := s.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return v, nil
}

// Has reports whether name is present at any stage.
func (s *Store) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Put attaches a payload whose type is taken from its dynamic type.
func (s *Store) Put(name string, payload any) error {
	if payload == nil {
		return fmt.Errorf("put %q: nil payload", name)
	}
	v := s.Mention(name)
	meta := metaOf(payload)
	prev := held(v)
	switch v.stage {
	case Allocated:
		if !v.meta.Type.Equal(meta.Type) {
			return fmt.Errorf("%w: %q holds %s, cannot store %s", ErrDuplicateName, name, v.meta.Type, meta.Type)
		}
		if !samePayload(v.payload, payload) {
			// Both payloads are live until the old one is released.
			s.account(0, meta.Bytes)
			if err := release(v); err != nil {
				s.account(meta.Bytes, 0)
				return fmt.Errorf("put %q: release previous payload: %w", name, err)
			}
			s.account(prev, 0)
			prev = meta.Bytes
		}
	case Declared:
		if !v.meta.Type.Equal(meta.Type) {
			return mismatch(name, v.meta.Type, meta.Type)
		}
	}
	s.account(prev, meta.Bytes)
	v.meta = meta
	v.payload = payload
	v.stage = Allocated
	return nil
}

// Set attaches a payload of type T to name.
func Set[T any](s *Store, name string, payload T) error {
	return s.Put(name, payload)
}

// Get returns the payload stored under name as T.
func Get[T any](s *Store, name string) (T, error) {
	var zero T
	v, err := s.Lookup(name)
	if err != nil {
		return zero, err
	}
	want := TypeOf[T]()
	if !v.meta.Type.IsZero() && !v.meta.Type.Equal(want) {
		return zero, mismatch(name, want, v.meta.Type)
	}
	if v.stage != Allocated {
		return zero, fmt.Errorf("%w: %q is %s", ErrNotAllocated, name, v.stage)
	}
	p, ok := v.payload.(T)
	if !ok {
		return zero, mismatch(name, want, TypeOfValue(v.payload))
	}
	return p, nil
}

// Erase releases the payload of name and removes the mapping.
func (s *Store) Erase(name string) error {
	v, err := s.Lookup(name)
	if err != nil {
		return err
	}
	if v.stage == Allocated {
		if err := release(v); err != nil {
			return fmt.Errorf("erase %q: %w", name, err)
		}
	}
	s.account(held(v), 0)
	delete(s.values, name)
	return nil
}

// MarkFreed moves name to the Freed stage, releasing any payload but
// keeping the entry and its metadata. Dry runs use this in place of Erase.
func (s *Store) MarkFreed(name string) error {
	v, err := s.Lookup(name)
	if err != nil {
		return err
	}
	if v.stage == Freed {
		return nil
	}
	if v.stage == Allocated {
		if err := release(v); err != nil {
			return fmt.Errorf("free %q: %w", name, err)
		}
	}
	s.account(v.meta.Bytes, 0)
	v.payload = nil
	v.stage = Freed
	return nil
}

// Names returns all names in sorted order. Reports use it; lookups never
// depend on it.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.values)
}

// Footprint returns current and peak bytes of declared and allocated values.
func (s *Store) Footprint() Footprint {
	return Footprint{Current: s.current, Peak: s.peak}
}

// Snapshot returns the metadata of every entry keyed by name.
func (s *Store) Snapshot() map[string]Meta {
	out := make(map[string]Meta, len(s.values))
	for name, v := range s.values {
		out[name] = v.Meta()
	}
	return out
}

func (s *Store) account(prev, next int64) {
	s.current += next - prev
	if s.current > s.peak {
		s.peak = s.current
	}
}

// held returns the bytes currently accounted for v.
func held(v *Value) int64 {
	if v.stage == Freed {
		return 0
	}
	return v.meta.Bytes
}

// samePayload reports whether a and b are the same pointer, so storing a
// payload that was updated in place does not release it.
func samePayload(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() != reflect.Pointer || rb.Kind() != reflect.Pointer {
		return false
	}
	return ra.Type() == rb.Type() && ra.Pointer() == rb.Pointer()
}

func release(v *Value) error {
	r, ok := v.payload.(Releaser)
	v.payload = nil
	if !ok {
		return nil
	}
	return r.Release()
}
