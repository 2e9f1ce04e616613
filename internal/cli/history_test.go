package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journaledRun runs plan once with --journal db under run id "run-1".
func journaledRun(t *testing.T, db, plan string) {
	t.Helper()
	_, _, err := executeRun(t, &RootOptions{Format: "text"}, "--journal", db, plan)
	require.NoError(t, err)
}

func TestHistoryListsRuns(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "orca.db")
	journaledRun(t, db, writePlan(t, dir, "plan.yaml", zeroNormPlan))

	out, err := execute(t, "history", "--journal", db)

	require.NoError(t, err)
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "real")
	assert.Contains(t, out, "ok")
}

func TestHistoryRunJSON(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "orca.db")
	journaledRun(t, db, writePlan(t, dir, "plan.yaml", zeroNormPlan))

	out, err := execute(t, "--format", "json", "history", "--journal", db, "--phase", "real", "run-1")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   RunHistory `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.Run.ID)
	require.Len(t, resp.Data.Steps, 2)
	assert.Equal(t, "ZeroTensor", resp.Data.Steps[0].Name)
	assert.Equal(t, "real", resp.Data.Steps[0].Phase)
	require.Len(t, resp.Data.Values, 2)
	assert.Equal(t, "Z", resp.Data.Values[0].Name)
	assert.Equal(t, []int{2, 3}, resp.Data.Values[0].Shape)
	assert.Equal(t, "n", resp.Data.Values[1].Name)
	assert.Equal(t, "0", resp.Data.Values[1].Rendered)
}

func TestHistoryRunText(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "orca.db")
	journaledRun(t, db, writePlan(t, dir, "plan.yaml", zeroNormPlan))

	out, err := execute(t, "history", "--journal", db, "run-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Run: run-1")
	assert.Contains(t, out, "Status: ok")
	assert.Contains(t, out, "dry")
	assert.Contains(t, out, "TensorNorm")
	assert.Contains(t, out, "[2 3]")
}

func TestHistoryUnknownRun(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "orca.db")
	journaledRun(t, db, writePlan(t, dir, "plan.yaml", zeroNormPlan))

	_, err := execute(t, "history", "--journal", db, "run-404")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown run")
}

func TestHistoryMissingJournal(t *testing.T) {
	_, err := execute(t, "history", "--journal", filepath.Join(t.TempDir(), "none.db"))

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "journal not found")
}
