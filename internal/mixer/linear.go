package mixer

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Linear mixes each new iterate with the previous mixed one:
// x = ratio*new + (1-ratio)*last. The residual is mixed the same way.
// A ratio of 1 disables mixing.
type Linear struct {
	ratio    float64
	last     []float64
	residual []float64
}

// NewLinear is the Factory for Linear. Ratio must be in (0, 1].
func NewLinear(opts Options) (Mixer, error) {
	if opts.Ratio <= 0 || opts.Ratio > 1 {
		return nil, fmt.Errorf("linear mixer: ratio %g outside (0, 1]", opts.Ratio)
	}
	return &Linear{ratio: opts.Ratio}, nil
}

func (l *Linear) Push(candidate, residual []float64) error {
	dim := -1
	if l.last != nil {
		dim = len(l.last)
	}
	if err := checkPush(candidate, residual, dim); err != nil {
		return err
	}
	if l.last == nil {
		l.last = slices.Clone(candidate)
		l.residual = slices.Clone(residual)
		return nil
	}
	l.last = mix(l.ratio, candidate, l.last)
	l.residual = mix(l.ratio, residual, l.residual)
	return nil
}

func mix(ratio float64, next, last []float64) []float64 {
	out := make([]float64, len(next))
	floats.ScaleTo(out, ratio, next)
	floats.AddScaled(out, 1-ratio, last)
	return out
}

func (l *Linear) Next() ([]float64, error) {
	if l.last == nil {
		return nil, ErrEmpty
	}
	return slices.Clone(l.last), nil
}

func (l *Linear) Residual() ([]float64, error) {
	if l.residual == nil {
		return nil, ErrEmpty
	}
	return slices.Clone(l.residual), nil
}
