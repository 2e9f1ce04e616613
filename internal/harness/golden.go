package harness

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/orca/internal/engine"
	"github.com/roach88/orca/internal/step"
)

// GoldenDir is where golden reports live, relative to the test package.
const GoldenDir = "testdata/golden"

// ErrGoldenMismatch indicates a report differs from its golden file.
var ErrGoldenMismatch = errors.New("report differs from golden file")

// Snapshot is the reproducible part of a report: no run id, plan hash
// or timings.
type Snapshot struct {
	Scenario  string               `json:"scenario"`
	Mode      engine.Mode          `json:"mode,omitempty"`
	Status    string               `json:"status,omitempty"`
	Steps     []engine.StepReport  `json:"steps"`
	Values    []engine.ValueReport `json:"values,omitempty"`
	PeakBytes int64                `json:"peak_bytes"`
	ErrorKind string               `json:"error_kind,omitempty"`
}

// NewSnapshot extracts the snapshot of a scenario result.
func NewSnapshot(name string, r *Result) Snapshot {
	snap := Snapshot{Scenario: name, Steps: []engine.StepReport{}, ErrorKind: engine.Kind(r.Err)}
	if r.Report == nil {
		return snap
	}
	rep := r.Report.WithoutTimings()
	snap.Mode = rep.Mode
	snap.Status = rep.Status
	snap.Steps = rep.Steps
	snap.Values = rep.Values
	snap.PeakBytes = rep.PeakBytes
	return snap
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden runs a scenario and compares its snapshot with
// testdata/golden/<name>.golden. Regenerate with
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario, reg *step.Registry) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), s, reg)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, s.Name, result)
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, r *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, r).Marshal()
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}

// CheckGolden compares a result with dir/<name>.golden outside of go
// test. With update it rewrites the file instead. A missing golden file
// is not an error: there is nothing to compare against.
func CheckGolden(dir, name string, r *Result, update bool) error {
	data, err := NewSnapshot(name, r).Marshal()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, name+".golden")
	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create golden dir: %w", err)
		}
		return os.WriteFile(path, data, 0o644)
	}
	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, data) {
		return fmt.Errorf("%w: %s", ErrGoldenMismatch, path)
	}
	return nil
}
