package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/orca/internal/argspec"
	"github.com/roach88/orca/internal/journal"
	"github.com/roach88/orca/internal/plan"
	"github.com/roach88/orca/internal/step"
	"github.com/roach88/orca/internal/value"
)

// load resolves every step type and stops at the first unknown one.
func (e *Engine) load(ctx context.Context, p *plan.Plan) error {
	_, span := e.tracer.Start(ctx, "phase load")
	defer span.End()

	for _, st := range p.Steps {
		if _, err := e.registry.Lookup(st.Name); err != nil {
			err := stepError(PhaseLoad, st, err)
			failSpan(span, err)
			return err
		}
	}
	return nil
}

// validate constructs every step and checks store references
// symbolically: an input must name a key that s already holds or that an
// earlier step binds as an output, with a type the input accepts. All
// problems are collected before returning. s may be nil.
func (e *Engine) validate(ctx context.Context, p *plan.Plan, s *value.Store, logger *slog.Logger) ([]*step.Instance, error) {
	_, span := e.tracer.Start(ctx, "phase validate")
	defer span.End()

	produced := map[string][]value.Type{}
	if s != nil {
		for _, name := range s.Names() {
			v, _ := s.Lookup(name)
			if !v.Type().IsZero() && v.Stage() != value.Freed {
				produced[name] = []value.Type{v.Type()}
			}
		}
	}

	var errs []error
	instances := make([]*step.Instance, len(p.Steps))
	for i, st := range p.Steps {
		inst, err := e.create(st, logger)
		if err != nil {
			errs = append(errs, stepError(PhaseValidate, st, err))
			e.assumeOutputs(st, produced)
			continue
		}
		if err := checkReferences(inst, produced); err != nil {
			errs = append(errs, stepError(PhaseValidate, st, err))
		}
		for _, b := range inst.Args.Bindings().Outputs() {
			produced[b.Key] = b.Slot.Types()
		}
		instances[i] = inst
	}

	err := errors.Join(errs...)
	if err != nil {
		failSpan(span, err)
	}
	return instances, err
}

func (e *Engine) create(st plan.Step, logger *slog.Logger) (*step.Instance, error) {
	return e.registry.Create(st.Name, st.In, st.Out, step.WithLogger(logger.With("index", st.Position)))
}

// assumeOutputs records the outputs of a step that failed to construct,
// so later steps are not reported for its mistakes.
func (e *Engine) assumeOutputs(st plan.Step, produced map[string][]value.Type) {
	def, err := e.registry.Lookup(st.Name)
	if err != nil {
		return
	}
	for name, raw := range st.Out {
		slot, ok := def.Spec.Slot(name)
		key, isText := raw.(string)
		if !ok || !isText || slot.Direction() != argspec.Out {
			continue
		}
		produced[strings.TrimPrefix(key, "$")] = slot.Types()
	}
}

func checkReferences(inst *step.Instance, produced map[string][]value.Type) error {
	var errs []error
	for _, b := range inst.Args.Bindings().Inputs() {
		if !b.IsRef() {
			continue
		}
		types, ok := produced[b.Key]
		if !ok {
			errs = append(errs, fmt.Errorf("input %s: %w: %q is not produced by any earlier step",
				b.Slot.Name(), value.ErrNotFound, b.Key))
			continue
		}
		if len(types) > 0 && !slices.ContainsFunc(types, b.Slot.Accepts) {
			errs = append(errs, fmt.Errorf("input %s: %w: %q holds %s, expected %s",
				b.Slot.Name(), value.ErrTypeMismatch, b.Key, typeNames(types), b.Slot.TypeNames()))
		}
	}
	return errors.Join(errs...)
}

func typeNames(types []value.Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name()
	}
	return strings.Join(names, " | ")
}

// scratchFrom copies the metadata of s into a new store for the dry
// phase. Payloads are never copied.
func scratchFrom(s *value.Store) (*value.Store, error) {
	scratch := value.NewStore()
	if s == nil {
		return scratch, nil
	}
	for _, name := range s.Names() {
		v, _ := s.Lookup(name)
		switch v.Stage() {
		case value.Mentioned:
			scratch.Mention(name)
		case value.Declared, value.Allocated:
			if _, err := scratch.Declare(name, v.Meta()); err != nil {
				return nil, err
			}
		case value.Freed:
			if _, err := scratch.Declare(name, v.Meta()); err != nil {
				return nil, err
			}
			if err := scratch.MarkFreed(name); err != nil {
				return nil, err
			}
		}
	}
	return scratch, nil
}

// dry runs every DryRun on scratch. It reports whether a step asked to
// stop.
func (e *Engine) dry(ctx context.Context, p *plan.Plan, instances []*step.Instance, scratch *value.Store, r *Report, logger *slog.Logger) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "phase dry")
	defer span.End()

	for i, st := range p.Steps {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		inst := instances[i]
		sr, err := e.runStep(ctx, PhaseDry, st, func(ctx context.Context) error {
			return dryStep(ctx, inst, scratch)
		})
		sr.PeakBytes = scratch.Footprint().Peak
		sr.Outputs = describeKeys(scratch, inst.Args.OutputKeys())
		r.Steps = append(r.Steps, sr)
		if jerr := e.recordStep(ctx, r.RunID, sr); jerr != nil {
			return false, jerr
		}

		switch {
		case errors.Is(err, step.ErrStop):
			logger.Info("stop requested", "phase", PhaseDry, "index", st.Position, "step", st.Name)
			return true, nil
		case err != nil:
			err = stepError(PhaseDry, st, err)
			failSpan(span, err)
			return false, err
		}
		logger.Debug("step declared", "phase", PhaseDry, "index", st.Position, "step", st.Name,
			"peak_bytes", sr.PeakBytes)
	}
	return false, nil
}

// dryStep runs one DryRun and checks that every bound output was
// declared.
func dryStep(ctx context.Context, inst *step.Instance, scratch *value.Store) error {
	if err := inst.Args.CheckInputs(scratch); err != nil {
		return err
	}
	if err := inst.Step.DryRun(ctx, scratch); err != nil {
		return err
	}
	var errs []error
	for _, b := range inst.Args.Bindings().Outputs() {
		v, err := scratch.Lookup(b.Key)
		if err == nil && !v.Type().IsZero() && (v.Stage() == value.Declared || v.Stage() == value.Allocated) {
			continue
		}
		errs = append(errs, fmt.Errorf("%w: output %s (%q) was not declared", ErrDryRunContract, b.Slot.Name(), b.Key))
	}
	return errors.Join(errs...)
}

// real runs fresh step instances on s. It reports whether a step asked
// to stop.
func (e *Engine) real(ctx context.Context, p *plan.Plan, s *value.Store, r *Report, logger *slog.Logger) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "phase real")
	defer span.End()

	for _, st := range p.Steps {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		inst, err := e.create(st, logger)
		if err != nil {
			err = stepError(PhaseReal, st, err)
			failSpan(span, err)
			return false, err
		}

		sr, err := e.runStep(ctx, PhaseReal, st, func(ctx context.Context) error {
			if err := inst.Args.CheckInputs(s); err != nil {
				return err
			}
			err := inst.Step.Run(ctx, s)
			if err == nil || errors.Is(err, step.ErrStop) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrStepFailed, err)
		})
		sr.PeakBytes = s.Footprint().Peak
		sr.Outputs = describeKeys(s, inst.Args.OutputKeys())
		r.Steps = append(r.Steps, sr)
		if jerr := e.recordStep(ctx, r.RunID, sr); jerr != nil {
			return false, jerr
		}

		switch {
		case errors.Is(err, step.ErrStop):
			logger.Info("stop requested", "phase", PhaseReal, "index", st.Position, "step", st.Name)
			return true, nil
		case err != nil && st.Fallible:
			r.Failed++
			logger.Warn("fallible step failed, continuing", "index", st.Position, "step", st.Name, "error", err)
			continue
		case err != nil:
			err = stepError(PhaseReal, st, err)
			failSpan(span, err)
			return false, err
		}
		logger.Info("step finished", "phase", PhaseReal, "index", st.Position, "step", st.Name,
			"duration", sr.Duration)
	}
	return false, nil
}

// runStep times fn inside a step span and fills the common report fields.
func (e *Engine) runStep(ctx context.Context, phase Phase, st plan.Step, fn func(context.Context) error) (StepReport, error) {
	ctx, span := e.tracer.Start(ctx, st.Name, trace.WithAttributes(
		attribute.String("orca.phase", string(phase)),
		attribute.Int("orca.step.index", st.Position),
		attribute.String("orca.step.name", st.Name),
	))
	defer span.End()

	sr := StepReport{Index: st.Position, Name: st.Name, Note: st.Note, Phase: phase, Status: journal.StatusOK}
	started := time.Now()
	err := fn(ctx)
	sr.Duration = time.Since(started)

	switch {
	case errors.Is(err, step.ErrStop):
		sr.Status = journal.StatusStopped
	case err != nil:
		sr.Status = journal.StatusFailed
		sr.Error = err.Error()
		sr.ErrorKind = Kind(err)
		failSpan(span, err)
	}
	return sr, err
}

func (e *Engine) recordStep(ctx context.Context, runID string, sr StepReport) error {
	if e.journal == nil {
		return nil
	}
	return e.journal.RecordStep(ctx, journal.StepRecord{
		RunID:     runID,
		Index:     sr.Index,
		Name:      sr.Name,
		Phase:     string(sr.Phase),
		Status:    sr.Status,
		Duration:  sr.Duration,
		ErrorKind: sr.ErrorKind,
		Error:     sr.Error,
	})
}
