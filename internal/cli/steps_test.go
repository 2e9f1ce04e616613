package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestStepsText(t *testing.T) {
	out, err := execute(t, "steps")

	require.NoError(t, err)
	for _, name := range []string{"Delete", "Echo", "Exit", "FixedPointIteration", "GenerateRandomTensor",
		"Nop", "TensorContraction", "TensorNorm", "TensorSum", "ZeroTensor"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "Computes the Frobenius norm of a tensor.")
}

func TestStepsJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "steps")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   []StepInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data, 10)
}

func TestDescribeText(t *testing.T) {
	out, err := execute(t, "describe", "tensor-norm")

	require.NoError(t, err)
	assert.Contains(t, out, "TensorNorm")
	assert.Contains(t, out, "Inputs:")
	assert.Contains(t, out, "Data")
	assert.Contains(t, out, "Outputs:")
	assert.Contains(t, out, "Norm")
}

func TestDescribeJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "describe", "GenerateRandomTensor")
	require.NoError(t, err)

	var resp struct {
		Data StepDoc `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "GenerateRandomTensor", resp.Data.Name)
	require.Len(t, resp.Data.Inputs, 3)
	assert.Equal(t, "dimensions", resp.Data.Inputs[0].Name)
	assert.Equal(t, "literal", resp.Data.Inputs[0].Kind)
	assert.False(t, resp.Data.Inputs[0].Required)
	require.Len(t, resp.Data.Outputs, 1)
	assert.Equal(t, "Result", resp.Data.Outputs[0].Name)
	assert.Equal(t, "reference", resp.Data.Outputs[0].Kind)
	assert.True(t, resp.Data.Outputs[0].Required)
}

func TestDescribeUnknownStep(t *testing.T) {
	out, err := execute(t, "describe", "Frobnicate")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [UnknownStepType]")
}
