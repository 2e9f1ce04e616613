package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/orca/internal/argspec"
	"github.com/roach88/orca/internal/plan"
	"github.com/roach88/orca/internal/step"
	"github.com/roach88/orca/internal/value"
)

// Phase names a stage of a run.
type Phase string

const (
	PhaseLoad     Phase = "load"
	PhaseValidate Phase = "validate"
	PhaseDry      Phase = "dry"
	PhaseReal     Phase = "real"
)

var (
	// ErrDryRunContract indicates a step's dry run did not declare an
	// output the plan binds.
	ErrDryRunContract = errors.New("dry run contract violation")

	// ErrStepFailed wraps any error a step returns from its real run.
	ErrStepFailed = errors.New("step execution failure")
)

// StepError locates a failure: the phase it was detected in and the
// position and type name of the step.
type StepError struct {
	Phase Phase
	// Index is the 1-based position of the step in the plan source.
	Index int
	Step  string
	Err   error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s phase, step %d (%s): %v", e.Phase, e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Error kinds reported by Kind.
const (
	KindUnknownStepType       = "UnknownStepType"
	KindDuplicateRegistration = "DuplicateRegistration"
	KindDuplicateName         = "DuplicateNameConflict"
	KindNotFound              = "NotFound"
	KindTypeMismatch          = "TypeMismatch"
	KindMissingRequired       = "MissingRequired"
	KindUnknownName           = "UnknownName"
	KindInvalidValue          = "InvalidValue"
	KindDryRunContract        = "DryRunContractViolation"
	KindStepFailed            = "StepExecutionFailure"
	KindPlanSchema            = "PlanSchema"
	KindCanceled              = "Canceled"
	KindOther                 = "Error"
)

var kinds = []struct {
	target error
	kind   string
}{
	{ErrStepFailed, KindStepFailed},
	{ErrDryRunContract, KindDryRunContract},
	{step.ErrUnknownStepType, KindUnknownStepType},
	{step.ErrDuplicateRegistration, KindDuplicateRegistration},
	{value.ErrDuplicateName, KindDuplicateName},
	{argspec.ErrMissingRequired, KindMissingRequired},
	{argspec.ErrUnknownName, KindUnknownName},
	{value.ErrTypeMismatch, KindTypeMismatch},
	{value.ErrNotFound, KindNotFound},
	{argspec.ErrInvalidValue, KindInvalidValue},
	{plan.ErrSchema, KindPlanSchema},
	{plan.ErrFormat, KindPlanSchema},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindCanceled},
}

// Kind classifies err. A step failure in the real phase is always
// StepExecutionFailure, whatever the step returned. Joined errors take
// the kind of the first match in the order above. Kind(nil) is "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return KindOther
}

// IsStepFailure reports whether err is a failure raised by a step's
// computation rather than a configuration or contract error.
func IsStepFailure(err error) bool {
	return errors.Is(err, ErrStepFailed)
}

// PhaseOf returns the phase err was detected in.
func PhaseOf(err error) (Phase, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Phase, true
	}
	return "", false
}

func stepError(phase Phase, s plan.Step, err error) *StepError {
	return &StepError{Phase: phase, Index: s.Position, Step: s.Name, Err: err}
}
