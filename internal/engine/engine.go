package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/orca/internal/journal"
	"github.com/roach88/orca/internal/plan"
	"github.com/roach88/orca/internal/step"
	"github.com/roach88/orca/internal/value"
)

// Journal receives run history. *journal.Store implements it.
type Journal interface {
	BeginRun(ctx context.Context, r journal.Run) error
	RecordStep(ctx context.Context, rec journal.StepRecord) error
	RecordValues(ctx context.Context, values []journal.ValueRecord) error
	FinishRun(ctx context.Context, runID, status, errMsg string) error
}

// Engine executes plans against a step registry.
type Engine struct {
	registry *step.Registry
	logger   *slog.Logger
	journal  Journal
	tracer   trace.Tracer
	runIDs   RunIDGenerator
	// started numbers the runs of this engine for the journal.
	started  atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine and the steps it creates.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithJournal records every run in j.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithTracer emits a span per run, phase and step.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithRunIDGenerator replaces the UUIDv7 run ids, typically with a
// FixedGenerator in tests.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.runIDs = g
		}
	}
}

// New creates an engine that resolves step types in reg.
func New(reg *step.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("orca/engine"),
		runIDs:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOption configures a single run.
type RunOption func(*runConfig)

type runConfig struct {
	name string
}

// WithName names the run in its report and the journal.
func WithName(name string) RunOption {
	return func(c *runConfig) {
		c.name = name
	}
}

// Validate runs the load and validate phases without touching any store.
// Errors from all steps are joined; each is a *StepError.
func (e *Engine) Validate(ctx context.Context, p *plan.Plan) error {
	ctx, span := e.tracer.Start(ctx, "validate")
	defer span.End()

	if err := e.load(ctx, p); err != nil {
		failSpan(span, err)
		return err
	}
	if _, err := e.validate(ctx, p, nil, e.logger); err != nil {
		failSpan(span, err)
		return err
	}
	return nil
}

// DryRun runs the load, validate and dry phases on a fresh store. The
// report lists the declared outputs of every step and the estimated peak
// memory.
func (e *Engine) DryRun(ctx context.Context, p *plan.Plan, opts ...RunOption) (*Report, error) {
	return e.execute(ctx, p, nil, ModeDry, opts)
}

// Run executes every phase. The dry phase works on a scratch copy of the
// metadata in s; the real phase works on s itself, which holds the
// results afterwards. A nil s runs on a fresh store.
func (e *Engine) Run(ctx context.Context, p *plan.Plan, s *value.Store, opts ...RunOption) (*Report, error) {
	if s == nil {
		s = value.NewStore()
	}
	return e.execute(ctx, p, s, ModeReal, opts)
}

func (e *Engine) execute(ctx context.Context, p *plan.Plan, s *value.Store, mode Mode, opts []RunOption) (*Report, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		cfg.name = p.Source
	}

	start := time.Now()
	r := &Report{RunID: e.runIDs.Generate(), Name: cfg.name, Mode: mode, Phase: PhaseLoad, Steps: []StepReport{}}
	logger := e.logger.With("run", r.RunID)

	ctx, span := e.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("orca.run_id", r.RunID),
		attribute.String("orca.mode", string(mode)),
		attribute.Int("orca.steps", len(p.Steps)),
	))
	defer span.End()

	hash, err := plan.Hash(p)
	if err != nil {
		return r, e.finish(ctx, span, r, start, err)
	}
	r.PlanHash = hash
	span.SetAttributes(attribute.String("orca.plan_hash", hash))

	if e.journal != nil {
		err := e.journal.BeginRun(ctx, journal.Run{
			ID:         r.RunID,
			Name:       r.Name,
			PlanHash:   r.PlanHash,
			Mode:       string(mode),
			Status:     journal.StatusRunning,
			StartedSeq: e.started.Add(1),
		})
		if err != nil {
			return r, err
		}
	}

	logger.Info("run started", "mode", mode, "steps", len(p.Steps), "plan_hash", hash)
	err = e.phases(ctx, p, s, mode, r, logger)
	return r, e.finish(ctx, span, r, start, err)
}

// phases drives the run and fills r.
func (e *Engine) phases(ctx context.Context, p *plan.Plan, s *value.Store, mode Mode, r *Report, logger *slog.Logger) error {
	if err := e.load(ctx, p); err != nil {
		return err
	}

	r.Phase = PhaseValidate
	instances, err := e.validate(ctx, p, s, logger)
	if err != nil {
		return err
	}

	r.Phase = PhaseDry
	scratch, err := scratchFrom(s)
	if err != nil {
		return err
	}
	stopped, err := e.dry(ctx, p, instances, scratch, r, logger)
	r.PeakBytes = scratch.Footprint().Peak
	if err != nil || mode == ModeDry {
		r.Values = describeStore(scratch)
		if stopped {
			r.Status = journal.StatusStopped
		}
		return err
	}

	r.Phase = PhaseReal
	r.Steps = r.Steps[:0:0]
	stopped, err = e.real(ctx, p, s, r, logger)
	r.Values = describeStore(s)
	if stopped {
		r.Status = journal.StatusStopped
	}
	return err
}

// finish completes the report, the span and the journal entry. It
// returns runErr, or the journal error when the run itself succeeded.
func (e *Engine) finish(ctx context.Context, span trace.Span, r *Report, start time.Time, runErr error) error {
	r.Duration = time.Since(start)
	switch {
	case runErr != nil:
		r.Status = journal.StatusFailed
		r.Error = runErr.Error()
		r.ErrorKind = Kind(runErr)
		failSpan(span, runErr)
		e.logger.Error("run failed", "run", r.RunID, "phase", r.Phase, "kind", r.ErrorKind, "error", runErr)
	case r.Status == "":
		r.Status = journal.StatusOK
	}
	if runErr == nil {
		e.logger.Info("run finished", "run", r.RunID, "status", r.Status, "duration", r.Duration, "peak_bytes", r.PeakBytes)
	}

	if e.journal == nil || r.PlanHash == "" {
		return runErr
	}
	// The run context may be cancelled; history is still written.
	jctx := context.WithoutCancel(ctx)
	if err := e.journal.RecordValues(jctx, valueRecords(r.RunID, r.Values)); err != nil && runErr == nil {
		runErr = err
	}
	if err := e.journal.FinishRun(jctx, r.RunID, r.Status, r.Error); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
