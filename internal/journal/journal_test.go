package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenTwiceKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.BeginRun(ctx, Run{ID: "r1", Name: "a", Mode: "real", Status: StatusRunning}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	runs, err := s2.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestPragmas(t *testing.T) {
	s := openTemp(t)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestCloseTwice(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestRunLifecycle(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	run := Run{ID: "r1", Name: "norm", PlanHash: "abc", Mode: "real", Status: StatusRunning, StartedSeq: 1}
	require.NoError(t, s.BeginRun(ctx, run))
	require.NoError(t, s.BeginRun(ctx, run))
	require.NoError(t, s.FinishRun(ctx, "r1", StatusFailed, "boom"))

	got, err := s.Run(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
	assert.Equal(t, "abc", got.PlanHash)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestUnknownRun(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Run(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, s.FinishRun(ctx, "nope", StatusOK, ""), ErrRunNotFound)
}

func TestStepsOrderedByPhaseThenIndex(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, Run{ID: "r1", Mode: "real", Status: StatusRunning}))

	recs := []StepRecord{
		{RunID: "r1", Index: 2, Name: "TensorNorm", Phase: "real", Status: StatusOK, Duration: time.Millisecond},
		{RunID: "r1", Index: 1, Name: "GenerateRandomTensor", Phase: "real", Status: StatusOK},
		{RunID: "r1", Index: 2, Name: "TensorNorm", Phase: "dry", Status: StatusOK},
		{RunID: "r1", Index: 1, Name: "GenerateRandomTensor", Phase: "dry", Status: StatusOK},
	}
	for _, rec := range recs {
		require.NoError(t, s.RecordStep(ctx, rec))
	}
	require.NoError(t, s.RecordStep(ctx, recs[0]))

	got, err := s.Steps(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "dry", got[0].Phase)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, "real", got[3].Phase)
	assert.Equal(t, 2, got[3].Index)
	assert.Equal(t, time.Millisecond, got[3].Duration)
}

func TestStepRequiresRun(t *testing.T) {
	s := openTemp(t)

	err := s.RecordStep(context.Background(), StepRecord{RunID: "missing", Index: 1, Phase: "dry"})

	assert.Error(t, err)
}

func TestValuesRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, Run{ID: "r1", Mode: "real", Status: StatusRunning}))

	require.NoError(t, s.RecordValues(ctx, []ValueRecord{
		{RunID: "r1", Name: "n", Type: "real", Stage: "allocated", Bytes: 8, Rendered: "2.5"},
		{RunID: "r1", Name: "X", Type: "tensor of real", Stage: "allocated", Shape: []int{3, 4}, Bytes: 96},
	}))

	got, err := s.Values(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "X", got[0].Name)
	assert.Equal(t, []int{3, 4}, got[0].Shape)
	assert.Equal(t, int64(96), got[0].Bytes)
	assert.Equal(t, "2.5", got[1].Rendered)
	assert.Empty(t, got[1].Shape)
}
