// Package steps holds the built-in step types. Register adds them to a
// step.Registry; nothing is registered implicitly.
package steps

import (
	"errors"
	"fmt"

	"github.com/roach88/orca/internal/argspec"
	"github.com/roach88/orca/internal/mixer"
	"github.com/roach88/orca/internal/step"
	"github.com/roach88/orca/internal/tensor"
	"github.com/roach88/orca/internal/value"
)

// Option configures Register.
type Option func(*options)

type options struct {
	mixers *mixer.Registry
}

// WithMixers sets the mixer registry iterative steps create mixers from.
// The default is mixer.Default().
func WithMixers(r *mixer.Registry) Option {
	return func(o *options) {
		o.mixers = r
	}
}

// Register adds every built-in step to reg.
func Register(reg *step.Registry, opts ...Option) error {
	o := options{mixers: mixer.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	defs := []step.Definition{
		generateRandomTensor(),
		zeroTensor(),
		tensorNorm(),
		tensorContraction(),
		tensorSum(),
		fixedPointIteration(o.mixers),
		deleteData(),
		nop(),
		exit(),
		echo(),
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in steps.
func NewRegistry(opts ...Option) *step.Registry {
	reg := step.NewRegistry()
	if err := Register(reg, opts...); err != nil {
		panic(err)
	}
	return reg
}

var (
	realType        = value.TypeOf[float64]()
	integerType     = value.TypeOf[int64]()
	booleanType     = value.TypeOf[bool]()
	textType        = value.TypeOf[string]()
	dimensionsType  = value.TypeOf[[]int64]()
	realTensor      = value.TypeOf[*tensor.Dense[float64]]()
	complexTensor   = value.TypeOf[*tensor.Dense[complex128]]()
	anyTensor       = []value.Type{realTensor, complexTensor}
	errNotConstant  = fmt.Errorf("%w: must be a constant, not a store reference", argspec.ErrInvalidValue)
	errNotConverged = errors.New("iteration did not converge")
)

// constant reads a literal argument that must not be a "$key" reference.
// Arguments that decide shapes use it, since dry runs cannot read values.
func constant[T any](args step.Arguments, name string) (T, error) {
	if _, ref := args.Key(name); ref {
		var zero T
		return zero, fmt.Errorf("%s: %w", name, errNotConstant)
	}
	return step.Literal[T](args, name)
}

func shapeOf(dims []int64) []int {
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = int(d)
	}
	return shape
}

// tensorMeta describes a tensor of the given element kind and shape. It
// fails with tensor.ErrShape for shapes New would refuse.
func tensorMeta(isComplex bool, shape []int) (value.Meta, error) {
	if isComplex {
		d, err := tensor.NewDry[complex128](shape...)
		if err != nil {
			return value.Meta{}, err
		}
		return value.Meta{Type: complexTensor, Shape: d.Shape(), Bytes: d.ByteSize()}, nil
	}
	d, err := tensor.NewDry[float64](shape...)
	if err != nil {
		return value.Meta{}, err
	}
	return value.Meta{Type: realTensor, Shape: d.Shape(), Bytes: d.ByteSize()}, nil
}

// newTensor allocates a zero tensor described by tensorMeta.
func newTensor(isComplex bool, shape []int) (any, error) {
	if isComplex {
		return tensor.New[complex128](shape...)
	}
	return tensor.New[float64](shape...)
}

// lookupTensor returns the tensor payload bound to input name.
func lookupTensor(args step.Arguments, s *value.Store, name string) (any, error) {
	key, ok := args.Key(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", step.ErrNotBound, name)
	}
	v, err := s.Lookup(key)
	if err != nil {
		return nil, err
	}
	switch p := v.Payload().(type) {
	case *tensor.Dense[float64], *tensor.Dense[complex128]:
		return p, nil
	case nil:
		return nil, fmt.Errorf("%w: %q is %s", value.ErrNotAllocated, key, v.Stage())
	default:
		return nil, fmt.Errorf("%w: %q is %s, expected a tensor", value.ErrTypeMismatch, key, v.TypeName())
	}
}

// tensorInputMeta returns the metadata of a tensor input and whether it
// is complex.
func tensorInputMeta(args step.Arguments, s *value.Store, name string) (value.Meta, bool, error) {
	meta, err := args.InputMeta(s, name)
	if err != nil {
		return meta, false, err
	}
	switch {
	case meta.Type.Equal(realTensor):
		return meta, false, nil
	case meta.Type.Equal(complexTensor):
		return meta, true, nil
	}
	return meta, false, fmt.Errorf("%s: %w: %s is %s, expected a tensor", args.Step(), value.ErrTypeMismatch, name, meta.Type)
}
