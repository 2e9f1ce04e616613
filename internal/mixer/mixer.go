// Package mixer provides convergence accelerators for fixed-point
// iterations. A step owns one Mixer for its lifetime, pushes each new
// iterate with its residual, and continues from Next.
package mixer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownMixer indicates a name with no registered factory.
	ErrUnknownMixer = errors.New("unknown mixer")

	// ErrDuplicateMixer indicates a name registered twice.
	ErrDuplicateMixer = errors.New("duplicate mixer registration")

	// ErrEmpty indicates Next or Residual before the first Push.
	ErrEmpty = errors.New("mixer has no iterates")

	// ErrLength indicates vectors of inconsistent length.
	ErrLength = errors.New("vector length mismatch")
)

// Mixer accumulates iterates and extrapolates the next candidate.
type Mixer interface {
	// Push records a candidate and its residual. Both are copied.
	Push(candidate, residual []float64) error
	// Next returns the mixed candidate to continue from.
	Next() ([]float64, error)
	// Residual returns the residual matching Next.
	Residual() ([]float64, error)
}

// Options are the tuning knobs shared by all mixers. Each mixer reads the
// ones it understands.
type Options struct {
	// Ratio is the weight of the newest iterate in linear mixing.
	Ratio float64
	// MaxResidua is the history length of DIIS.
	MaxResidua int
}

// DefaultOptions returns the values used when a step does not set them.
func DefaultOptions() Options {
	return Options{Ratio: 1.0, MaxResidua: 4}
}

// Factory creates a mixer.
type Factory func(Options) (Mixer, error)

// Registry maps mixer names (case-insensitive) to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default returns a registry with the linear and diis mixers.
func Default() *Registry {
	r := NewRegistry()
	_ = r.Register("linear", NewLinear)
	_ = r.Register("diis", NewDIIS)
	return r
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	key := strings.ToLower(name)
	if _, ok := r.factories[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateMixer, name)
	}
	r.factories[key] = f
	return nil
}

// Create builds the mixer registered under name.
func (r *Registry) Create(name string, opts Options) (Mixer, error) {
	f, ok := r.factories[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownMixer, name, strings.Join(r.Names(), ", "))
	}
	return f(opts)
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkPush(candidate, residual []float64, dim int) error {
	if len(candidate) != len(residual) {
		return fmt.Errorf("%w: candidate %d, residual %d", ErrLength, len(candidate), len(residual))
	}
	if dim >= 0 && len(candidate) != dim {
		return fmt.Errorf("%w: got %d, previous iterates have %d", ErrLength, len(candidate), dim)
	}
	return nil
}
