package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orca/internal/step"
	"github.com/roach88/orca/internal/value"
)

func TestFixedRunID(t *testing.T) {
	assert.Equal(t, "test-run-default", NewFixedRunID("").Generate())

	g := NewFixedRunID("run-x")
	assert.Equal(t, "run-x", g.Generate())
	assert.Equal(t, "run-x", g.Generate())
}

func TestRegister(t *testing.T) {
	reg := step.NewRegistry()
	require.NoError(t, Register(reg))
	assert.Equal(t, []string{"Fail", "Undeclared"}, reg.Names())

	inst, err := reg.Create("fail", nil, map[string]any{"Out": "x"})
	require.NoError(t, err)
	s := value.NewStore()
	require.NoError(t, inst.Step.DryRun(context.Background(), s))
	assert.True(t, s.Has("x"))
	assert.ErrorIs(t, inst.Step.Run(context.Background(), s), ErrInjected)

	assert.ErrorIs(t, Register(reg), step.ErrDuplicateRegistration)
}
