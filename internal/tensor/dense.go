package tensor

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"unsafe"

	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/floats"
)

// Element is the set of supported element types.
type Element interface {
	float64 | complex128
}

var (
	// ErrReleased indicates use of a tensor after Release.
	ErrReleased = errors.New("tensor released")

	// ErrShape indicates an invalid shape, index or extent mismatch.
	ErrShape = errors.New("invalid shape")
)

// Dense is a dense n-dimensional tensor.
type Dense[F Element] struct {
	shape    []int
	strides  []int
	data     []F
	released bool
}

// New allocates a zero tensor of the given shape. A rank-0 tensor (no
// extents) holds one element.
func New[F Element](shape ...int) (*Dense[F], error) {
	n, err := count[F](shape)
	if err != nil {
		return nil, err
	}
	return &Dense[F]{
		shape:   slices.Clone(shape),
		strides: stridesOf(shape),
		data:    make([]F, n),
	}, nil
}

// MustNew is like New but panics on an invalid shape.
func MustNew[F Element](shape ...int) *Dense[F] {
	t, err := New[F](shape...)
	if err != nil {
		panic(err)
	}
	return t
}

func stridesOf(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

// ElementName returns "real" or "complex" for F.
func ElementName[F Element]() string {
	var zero F
	if _, ok := any(zero).(complex128); ok {
		return "complex"
	}
	return "real"
}

// ElementSize returns the size of one element of F in bytes.
func ElementSize[F Element]() int64 {
	var zero F
	return int64(unsafe.Sizeof(zero))
}

// MaxBytes is the largest tensor New allocates, the address space limit
// of the Go heap on 64-bit platforms.
const MaxBytes int64 = 1 << 48

// Footprint returns the bytes a tensor of F with this shape needs. It
// fails with ErrShape on a non-positive extent or when the tensor would
// exceed MaxBytes.
func Footprint[F Element](shape ...int) (int64, error) {
	n, err := count[F](shape)
	if err != nil {
		return 0, err
	}
	return int64(n) * ElementSize[F](), nil
}

// count returns the number of elements of shape, checking every
// multiplication against MaxBytes and the range of int.
func count[F Element](shape []int) (int, error) {
	limit := min(MaxBytes, int64(math.MaxInt)) / ElementSize[F]()
	n := int64(1)
	for i, e := range shape {
		if e <= 0 {
			return 0, fmt.Errorf("%w: extent %d of axis %d", ErrShape, e, i)
		}
		if n > limit/int64(e) {
			return 0, fmt.Errorf("%w: %v exceeds %d bytes", ErrShape, shape, MaxBytes)
		}
		n *= int64(e)
	}
	return int(n), nil
}

// TypeName implements value.Namer. It is safe on a nil receiver.
func (t *Dense[F]) TypeName() string {
	return "tensor of " + ElementName[F]()
}

// Shape returns a copy of the extents.
func (t *Dense[F]) Shape() []int { return slices.Clone(t.shape) }

// Rank returns the number of axes.
func (t *Dense[F]) Rank() int { return len(t.shape) }

// Len returns the number of elements.
func (t *Dense[F]) Len() int { return len(t.data) }

// ByteSize returns the memory held by the elements.
func (t *Dense[F]) ByteSize() int64 {
	return int64(len(t.data)) * ElementSize[F]()
}

// Release frees the element storage. Further use fails with ErrReleased.
func (t *Dense[F]) Release() error {
	t.data = nil
	t.released = true
	return nil
}

// Released reports whether Release was called.
func (t *Dense[F]) Released() bool { return t.released }

func (t *Dense[F]) check() error {
	if t == nil {
		return fmt.Errorf("%w: nil tensor", ErrShape)
	}
	if t.released {
		return ErrReleased
	}
	return nil
}

func (t *Dense[F]) offset(idx []int) (int, error) {
	if len(idx) != len(t.shape) {
		return 0, fmt.Errorf("%w: %d indices for rank %d", ErrShape, len(idx), len(t.shape))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			return 0, fmt.Errorf("%w: index %d out of range [0,%d) on axis %d", ErrShape, v, t.shape[i], i)
		}
		off += v * t.strides[i]
	}
	return off, nil
}

// At returns the element at idx.
func (t *Dense[F]) At(idx ...int) (F, error) {
	var zero F
	if err := t.check(); err != nil {
		return zero, err
	}
	off, err := t.offset(idx)
	if err != nil {
		return zero, err
	}
	return t.data[off], nil
}

// Set writes v at idx.
func (t *Dense[F]) Set(v F, idx ...int) error {
	if err := t.check(); err != nil {
		return err
	}
	off, err := t.offset(idx)
	if err != nil {
		return err
	}
	t.data[off] = v
	return nil
}

// Read returns a copy of all elements in row-major order.
func (t *Dense[F]) Read() ([]F, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return slices.Clone(t.data), nil
}

// Write replaces all elements; data must have Len elements.
func (t *Dense[F]) Write(data []F) error {
	if err := t.check(); err != nil {
		return err
	}
	if len(data) != len(t.data) {
		return fmt.Errorf("%w: %d elements for tensor of %d", ErrShape, len(data), len(t.data))
	}
	copy(t.data, data)
	return nil
}

// Scale multiplies every element by alpha.
func (t *Dense[F]) Scale(alpha F) error {
	if err := t.check(); err != nil {
		return err
	}
	for i := range t.data {
		t.data[i] *= alpha
	}
	return nil
}

// FrobeniusNorm returns the square root of the sum of squared magnitudes.
func (t *Dense[F]) FrobeniusNorm() (float64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	switch d := any(t.data).(type) {
	case []float64:
		return floats.Norm(d, 2), nil
	case []complex128:
		return cmplxs.Norm(d, 2), nil
	}
	return 0, nil
}

// Fill overwrites every element with standard normal samples. Complex
// elements get independent real and imaginary parts.
func (t *Dense[F]) Fill(r *rand.Rand) error {
	if err := t.check(); err != nil {
		return err
	}
	switch d := any(t.data).(type) {
	case []float64:
		for i := range d {
			d[i] = r.NormFloat64()
		}
	case []complex128:
		for i := range d {
			d[i] = complex(r.NormFloat64(), r.NormFloat64())
		}
	}
	return nil
}

// NewRand returns the deterministic generator used for Fill.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
