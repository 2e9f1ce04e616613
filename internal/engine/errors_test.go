package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/orca/internal/argspec"
	"github.com/roach88/orca/internal/plan"
	"github.com/roach88/orca/internal/step"
	"github.com/roach88/orca/internal/value"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("x: %w", step.ErrUnknownStepType), KindUnknownStepType},
		{step.ErrDuplicateRegistration, KindDuplicateRegistration},
		{value.ErrDuplicateName, KindDuplicateName},
		{value.ErrNotFound, KindNotFound},
		{argspec.ErrTypeMismatch, KindTypeMismatch},
		{argspec.ErrMissingRequired, KindMissingRequired},
		{argspec.ErrUnknownName, KindUnknownName},
		{argspec.ErrInvalidValue, KindInvalidValue},
		{ErrDryRunContract, KindDryRunContract},
		{&plan.SchemaError{Message: "bad"}, KindPlanSchema},
		{context.Canceled, KindCanceled},
		{errors.New("other"), KindOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), "%v", tt.err)
	}
}

func TestKindPrefersStepFailure(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrStepFailed, value.ErrNotFound)

	assert.Equal(t, KindStepFailed, Kind(err))
	assert.True(t, IsStepFailure(err))
}

func TestStepError(t *testing.T) {
	err := stepError(PhaseValidate, plan.Step{Name: "TensorNorm", Position: 3}, argspec.ErrMissingRequired)

	assert.Equal(t, "validate phase, step 3 (TensorNorm): missing required argument", err.Error())
	assert.ErrorIs(t, err, argspec.ErrMissingRequired)

	phase, ok := PhaseOf(fmt.Errorf("wrapped: %w", err))
	assert.True(t, ok)
	assert.Equal(t, PhaseValidate, phase)

	_, ok = PhaseOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")

	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7GeneratorSorts(t *testing.T) {
	var g UUIDv7Generator
	a := g.Generate()
	b := g.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, a[:13], b[:13])
}
