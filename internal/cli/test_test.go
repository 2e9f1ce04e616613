package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orca/internal/step"
	"github.com/roach88/orca/internal/steps"
	"github.com/roach88/orca/internal/testutil"
)

const harnessScenarios = "../harness/testdata/scenarios"

func withTestSteps() func() (*step.Registry, error) {
	return func() (*step.Registry, error) {
		reg := steps.NewRegistry()
		return reg, testutil.Register(reg)
	}
}

func executeTest(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format, Registry: withTestSteps()})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeTest(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := executeTest(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := executeTest(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := executeTest(t, "text", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ zero-norm")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, err := executeTest(t, "json", harnessScenarios, "--filter", "*norm")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	names := []string{resp.Data.Scenarios[0].Name, resp.Data.Scenarios[1].Name}
	assert.ElementsMatch(t, []string{"norm", "zero-norm"}, names)
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: wrong-status
description: Expects a stop that never happens.
plan:
  - name: Nop
expect:
  status: stopped
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(scenario), 0o644))

	out, err := executeTest(t, "text", dir)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong-status")
	assert.Contains(t, out, "status: expected stopped, got ok")
	assert.Contains(t, out, "1 failed")
}

func TestTestCommandUpdateGolden(t *testing.T) {
	root := t.TempDir()
	scenarios := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	data, err := os.ReadFile(filepath.Join(harnessScenarios, "zero-norm.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "zero-norm.yaml"), data, 0o644))

	out, err := executeTest(t, "text", scenarios, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "golden updated")

	golden := filepath.Join(root, "golden", "zero-norm.golden")
	want, err := os.ReadFile("../harness/testdata/golden/zero-norm.golden")
	require.NoError(t, err)
	got, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))
	out, err = executeTest(t, "text", scenarios)
	require.Error(t, err)
	assert.Contains(t, out, "differs from golden file")
}
