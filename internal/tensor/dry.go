package tensor

import (
	"fmt"
	"slices"
)

// Dry describes a tensor a dry run would allocate. It never holds elements.
type Dry[F Element] struct {
	shape []int
	bytes int64
}

// NewDry validates shape and returns its dry description. It fails where
// New would, without allocating.
func NewDry[F Element](shape ...int) (*Dry[F], error) {
	bytes, err := Footprint[F](shape...)
	if err != nil {
		return nil, err
	}
	return &Dry[F]{shape: slices.Clone(shape), bytes: bytes}, nil
}

// Shape returns a copy of the extents.
func (d *Dry[F]) Shape() []int { return slices.Clone(d.shape) }

// ByteSize returns the bytes the real tensor would need.
func (d *Dry[F]) ByteSize() int64 { return d.bytes }

// TypeName is the name of the tensor this describes.
func (d *Dry[F]) TypeName() string { return (*Dense[F])(nil).TypeName() }

// ContractShape returns the shape of the result of contracting A[ia] with
// B[ib] into the letters of ic, checking extents agree. Dry runs use it to
// validate index patterns without touching data.
func ContractShape(aShape []int, ia string, bShape []int, ib string, ic string) ([]int, error) {
	extents := map[rune]int{}
	bind := func(shape []int, idx string) error {
		runes := []rune(idx)
		if len(runes) != len(shape) {
			return fmt.Errorf("%w: index %q has %d letters for rank %d", ErrShape, idx, len(runes), len(shape))
		}
		for i, r := range runes {
			if e, ok := extents[r]; ok && e != shape[i] {
				return fmt.Errorf("%w: index %q has extents %d and %d", ErrShape, string(r), e, shape[i])
			}
			extents[r] = shape[i]
		}
		return nil
	}
	if err := bind(aShape, ia); err != nil {
		return nil, err
	}
	if err := bind(bShape, ib); err != nil {
		return nil, err
	}
	out := make([]int, 0, len(ic))
	for _, r := range ic {
		e, ok := extents[r]
		if !ok {
			return nil, fmt.Errorf("%w: result index %q does not appear in any operand", ErrShape, string(r))
		}
		out = append(out, e)
	}
	return out, nil
}
