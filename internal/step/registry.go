package step

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/orca/internal/argspec"
)

var (
	// ErrUnknownStepType indicates a name with no registered definition.
	ErrUnknownStepType = errors.New("unknown step type")

	// ErrDuplicateRegistration indicates a name registered twice.
	ErrDuplicateRegistration = errors.New("duplicate step registration")
)

// Registry maps step type names to definitions. Names match after
// argspec.Normalize, so "TensorNorm" and "tensor-norm" are the same step.
//
// A Registry is populated during start-up and read-only afterwards; it is
// not safe for concurrent registration.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return errors.New("step definition without a name")
	}
	if def.Spec == nil || def.New == nil {
		return fmt.Errorf("step %q: spec and constructor are required", def.Name)
	}
	key := argspec.Normalize(def.Name)
	if prev, ok := r.defs[key]; ok {
		return fmt.Errorf("%w: %q (already registered as %q)", ErrDuplicateRegistration, def.Name, prev.Name)
	}
	r.defs[key] = def
	return nil
}

// MustRegister registers definitions and panics on the first error.
func (r *Registry) MustRegister(defs ...Definition) {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (Definition, error) {
	def, ok := r.defs[argspec.Normalize(name)]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownStepType, name)
	}
	return def, nil
}

// Instance is a constructed step with its arguments.
type Instance struct {
	Definition Definition
	Args       Arguments
	Step       Step
}

// CreateOption configures Create.
type CreateOption func(*createConfig)

type createConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger handed to the step through its Arguments.
func WithLogger(l *slog.Logger) CreateOption {
	return func(c *createConfig) {
		c.logger = l
	}
}

// Create resolves name, binds the raw plan arguments against its spec and
// constructs the step. Argument errors are joined argspec.ArgumentErrors.
func (r *Registry) Create(name string, in, out map[string]any, opts ...CreateOption) (*Instance, error) {
	var cfg createConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	def, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	bindings, err := def.Spec.Bind(def.Name, in, out)
	if err != nil {
		return nil, err
	}
	args := NewArguments(def.Name, bindings, cfg.logger)
	s, err := def.New(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.Name, err)
	}
	return &Instance{Definition: def, Args: args, Step: s}, nil
}

// Names returns the registered step names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for _, def := range r.defs {
		names = append(names, def.Name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns all definitions sorted by name.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
