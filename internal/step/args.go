package step

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/orca/internal/argspec"
	"github.com/roach88/orca/internal/value"
)

// ErrNotBound indicates a read of an optional argument the plan omitted.
var ErrNotBound = errors.New("argument not bound")

// Arguments are the resolved bindings of one configured step.
type Arguments struct {
	step     string
	bindings *argspec.Bindings
	logger   *slog.Logger
}

// NewArguments wraps bindings for a step named step.
func NewArguments(step string, b *argspec.Bindings, logger *slog.Logger) Arguments {
	if logger == nil {
		logger = slog.Default()
	}
	return Arguments{step: step, bindings: b, logger: logger.With("step", step)}
}

// Step returns the step type name.
func (a Arguments) Step() string { return a.step }

// Logger returns a logger tagged with the step name.
func (a Arguments) Logger() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// Bindings returns the underlying bindings.
func (a Arguments) Bindings() *argspec.Bindings { return a.bindings }

// Bound reports whether name has a binding, explicit or defaulted.
func (a Arguments) Bound(name string) bool {
	_, ok := a.bindings.Get(name)
	return ok
}

// Key returns the store key of a reference binding.
func (a Arguments) Key(name string) (string, bool) {
	b, ok := a.bindings.Get(name)
	if !ok || !b.IsRef() {
		return "", false
	}
	return b.Key, true
}

// Literal returns a constant argument. It fails for unbound arguments and
// for literal slots bound to a store key; use Input for those.
func Literal[T any](a Arguments, name string) (T, error) {
	var zero T
	b, ok := a.bindings.Get(name)
	if !ok {
		return zero, fmt.Errorf("%s: %w: %s", a.step, ErrNotBound, name)
	}
	if b.IsRef() {
		return zero, fmt.Errorf("%s: %s is bound to store key %q, not a constant", a.step, name, b.Key)
	}
	v, ok := b.Literal.(T)
	if !ok {
		return zero, fmt.Errorf("%s: %w: %s is %s, requested %s", a.step, value.ErrTypeMismatch,
			name, value.TypeOfValue(b.Literal), value.TypeOf[T]())
	}
	return v, nil
}

// Input returns an argument as T, reading the store for reference
// bindings and returning the constant otherwise.
func Input[T any](a Arguments, s *value.Store, name string) (T, error) {
	b, ok := a.bindings.Get(name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w: %s", a.step, ErrNotBound, name)
	}
	if !b.IsRef() {
		return Literal[T](a, name)
	}
	v, err := value.Get[T](s, b.Key)
	if err != nil {
		return v, fmt.Errorf("%s: input %s: %w", a.step, name, err)
	}
	return v, nil
}

// InputMeta returns the type and shape of a reference input as currently
// known to the store. Dry runs use it to derive output shapes.
func (a Arguments) InputMeta(s *value.Store, name string) (value.Meta, error) {
	key, ok := a.Key(name)
	if !ok {
		return value.Meta{}, fmt.Errorf("%s: %w: %s", a.step, ErrNotBound, name)
	}
	v, err := s.Lookup(key)
	if err != nil {
		return value.Meta{}, fmt.Errorf("%s: input %s: %w", a.step, name, err)
	}
	return v.Meta(), nil
}

// CheckInputs verifies every bound reference input is present in the
// store with a type its slot accepts. Mentioned values have no type yet
// and fail with value.ErrNotFound.
func (a Arguments) CheckInputs(s *value.Store) error {
	var errs []error
	for _, b := range a.bindings.Inputs() {
		if !b.IsRef() {
			continue
		}
		v, err := s.Lookup(b.Key)
		if err == nil && (v.Type().IsZero() || v.Stage() == value.Freed) {
			err = fmt.Errorf("%w: %q is %s", value.ErrNotFound, b.Key, v.Stage())
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: input %s: %w", a.step, b.Slot.Name(), err))
			continue
		}
		if !b.Slot.Accepts(v.Type()) {
			errs = append(errs, fmt.Errorf("%s: input %s: %w: %q is %s, expected %s", a.step, b.Slot.Name(),
				value.ErrTypeMismatch, b.Key, v.Type(), b.Slot.TypeNames()))
		}
	}
	return errors.Join(errs...)
}

// SetOutput stores v under the key bound to output name. Unbound optional
// outputs are skipped.
func (a Arguments) SetOutput(s *value.Store, name string, v any) error {
	b, ok := a.bindings.Get(name)
	if !ok {
		return nil
	}
	if err := a.checkOutput(b, value.TypeOfValue(v)); err != nil {
		return err
	}
	if err := s.Put(b.Key, v); err != nil {
		return fmt.Errorf("%s: output %s: %w", a.step, name, err)
	}
	return nil
}

// DeclareOutput records what output name will hold after the real run.
// Unbound optional outputs are skipped.
func (a Arguments) DeclareOutput(s *value.Store, name string, meta value.Meta) error {
	b, ok := a.bindings.Get(name)
	if !ok {
		return nil
	}
	if err := a.checkOutput(b, meta.Type); err != nil {
		return err
	}
	if _, err := s.Declare(b.Key, meta); err != nil {
		return fmt.Errorf("%s: output %s: %w", a.step, name, err)
	}
	return nil
}

func (a Arguments) checkOutput(b argspec.Binding, t value.Type) error {
	if b.Slot.Direction() != argspec.Out {
		return fmt.Errorf("%s: %s is not an output", a.step, b.Slot.Name())
	}
	if !b.Slot.Accepts(t) {
		return fmt.Errorf("%s: output %s: %w: produced %s, declared %s", a.step, b.Slot.Name(),
			value.ErrTypeMismatch, t, b.Slot.TypeNames())
	}
	return nil
}

// OutputKeys returns the store keys of all bound outputs.
func (a Arguments) OutputKeys() []string {
	var keys []string
	for _, b := range a.bindings.Outputs() {
		keys = append(keys, b.Key)
	}
	return keys
}
