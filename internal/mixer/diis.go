package mixer

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DIIS extrapolates from up to MaxResidua previous iterates (direct
// inversion in the iterative subspace). The weights w minimize the norm
// of the combined residual subject to sum(w) = 1, found from
//
//	| 0  -1   ... -1  | |λ |   |-1|
//	| -1 B11  ... B1n | |w1| = | 0|
//	| ...             | |..|   |..|
//	| -1 Bn1  ... Bnn | |wn|   | 0|
//
// with Bij = 2 rᵢ·rⱼ. History is a ring buffer; the oldest iterate is
// replaced once it is full.
type DIIS struct {
	max        int
	candidates [][]float64
	residua    [][]float64
	overlap    *mat.SymDense
	nextIndex  int
	count      int

	next     []float64
	residual []float64
	weights  []float64
}

// NewDIIS is the Factory for DIIS. MaxResidua must be at least 1.
func NewDIIS(opts Options) (Mixer, error) {
	if opts.MaxResidua < 1 {
		return nil, fmt.Errorf("diis mixer: maxResidua %d must be at least 1", opts.MaxResidua)
	}
	return &DIIS{
		max:        opts.MaxResidua,
		candidates: make([][]float64, opts.MaxResidua),
		residua:    make([][]float64, opts.MaxResidua),
		overlap:    mat.NewSymDense(opts.MaxResidua, nil),
	}, nil
}

func (d *DIIS) Push(candidate, residual []float64) error {
	dim := -1
	if d.count > 0 {
		dim = len(d.candidates[(d.nextIndex+d.max-1)%d.max])
	}
	if err := checkPush(candidate, residual, dim); err != nil {
		return err
	}
	d.candidates[d.nextIndex] = slices.Clone(candidate)
	d.residua[d.nextIndex] = slices.Clone(residual)
	for i, r := range d.residua {
		if r == nil {
			continue
		}
		d.overlap.SetSym(d.nextIndex, i, 2*floats.Dot(r, residual))
	}
	if d.count < d.max {
		d.count++
	}

	d.weights = d.solve()
	d.next = make([]float64, len(candidate))
	d.residual = make([]float64, len(residual))
	for i := 0; i < d.count; i++ {
		floats.AddScaled(d.next, d.weights[i], d.candidates[i])
		floats.AddScaled(d.residual, d.weights[i], d.residua[i])
	}
	d.nextIndex = (d.nextIndex + 1) % d.max
	return nil
}

// solve returns the weight of every filled history slot. A singular or
// ill conditioned system (parallel or zero residuals) falls back to the
// newest iterate, as does a solution whose weights do not sum to one.
func (d *DIIS) solve() []float64 {
	n := d.count + 1
	b := mat.NewDense(n, n, nil)
	for i := 1; i < n; i++ {
		b.Set(0, i, -1)
		b.Set(i, 0, -1)
		for j := 1; j < n; j++ {
			b.Set(i, j, d.overlap.At(i-1, j-1))
		}
	}
	rhs := mat.NewVecDense(n, nil)
	rhs.SetVec(0, -1)

	var x mat.VecDense
	weights := make([]float64, d.count)
	if err := x.SolveVec(b, rhs); err != nil || !finite(x.RawVector().Data) {
		weights[d.nextIndex] = 1
		return weights
	}
	for i := range weights {
		weights[i] = x.AtVec(i + 1)
	}
	if math.Abs(floats.Sum(weights)-1) > weightTolerance {
		clear(weights)
		weights[d.nextIndex] = 1
	}
	return weights
}

// weightTolerance bounds how far the solved weights may drift from
// summing to one before the solve is treated as singular.
const weightTolerance = 1e-8

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (d *DIIS) Next() ([]float64, error) {
	if d.next == nil {
		return nil, ErrEmpty
	}
	return slices.Clone(d.next), nil
}

func (d *DIIS) Residual() ([]float64, error) {
	if d.residual == nil {
		return nil, ErrEmpty
	}
	return slices.Clone(d.residual), nil
}

// Weights returns the extrapolation weights of the last Push, indexed by
// history slot.
func (d *DIIS) Weights() []float64 {
	return slices.Clone(d.weights)
}
