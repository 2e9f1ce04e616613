package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/orca/internal/engine"
	"github.com/roach88/orca/internal/step"
	"github.com/roach88/orca/internal/testutil"
	"github.com/roach88/orca/internal/value"
)

// Result is the outcome of one scenario.
type Result struct {
	// Pass is true when every expectation held.
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
	// Report is nil when the plan failed to load.
	Report *engine.Report `json:"report,omitempty"`
	// Err is the run error, if any.
	Err error `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records a failed expectation.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the engine logger. Scenarios are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes s against reg on a fresh store and checks its
// expectations. The error is non-nil only when the scenario itself is
// unusable, never for a failing run.
func Run(ctx context.Context, s *Scenario, reg *step.Registry, opts ...Option) (*Result, error) {
	if s == nil {
		return nil, errors.New("nil scenario")
	}
	o := options{logger: testutil.QuietLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	result := NewResult()
	p, err := s.LoadPlan()
	if err != nil {
		result.Err = err
		checkError(result, s.Expect.Error, err)
		return result, nil
	}

	eng := engine.New(reg,
		engine.WithLogger(o.logger),
		engine.WithRunIDGenerator(testutil.NewFixedRunID(s.runID())),
	)

	var store *value.Store
	if s.DryOnly {
		result.Report, err = eng.DryRun(ctx, p, engine.WithName(s.Name))
	} else {
		store = value.NewStore()
		result.Report, err = eng.Run(ctx, p, store, engine.WithName(s.Name))
	}
	result.Err = err

	checkError(result, s.Expect.Error, err)
	checkReport(result, s.Expect, store)
	return result, nil
}
