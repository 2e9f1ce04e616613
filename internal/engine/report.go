package engine

import (
	"slices"
	"time"

	"github.com/roach88/orca/internal/journal"
	"github.com/roach88/orca/internal/value"
)

// Mode is what a run was asked to do.
type Mode string

const (
	// ModeDry stops after the dry phase.
	ModeDry Mode = "dry"
	// ModeReal runs every phase.
	ModeReal Mode = "real"
)

// Report describes a finished run, successful or not.
type Report struct {
	RunID    string `json:"run_id" yaml:"run_id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	PlanHash string `json:"plan_hash" yaml:"plan_hash"`
	Mode     Mode   `json:"mode" yaml:"mode"`
	// Status is one of journal.StatusOK, StatusFailed or StatusStopped.
	Status string `json:"status" yaml:"status"`
	// Phase is the last phase entered.
	Phase Phase `json:"phase" yaml:"phase"`

	Steps []StepReport `json:"steps" yaml:"steps"`
	// Values is the final content of the store the last phase ran on.
	Values []ValueReport `json:"values,omitempty" yaml:"values,omitempty"`

	// PeakBytes is the dry phase estimate of peak memory held by values.
	PeakBytes int64         `json:"peak_bytes" yaml:"peak_bytes"`
	Duration  time.Duration `json:"duration_ns,omitempty" yaml:"duration,omitempty"`
	Failed    int           `json:"failed,omitempty" yaml:"failed,omitempty"`

	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

// StepReport is the outcome of one step in the last phase it reached.
type StepReport struct {
	Index    int           `json:"index" yaml:"index"`
	Name     string        `json:"name" yaml:"name"`
	Note     string        `json:"note,omitempty" yaml:"note,omitempty"`
	Phase    Phase         `json:"phase" yaml:"phase"`
	Status   string        `json:"status" yaml:"status"`
	Duration time.Duration `json:"duration_ns,omitempty" yaml:"duration,omitempty"`
	Outputs  []ValueReport `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	// PeakBytes is the store's peak footprint after the step.
	PeakBytes int64  `json:"peak_bytes" yaml:"peak_bytes"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

// ValueReport describes one store value.
type ValueReport struct {
	Key   string `json:"key" yaml:"key"`
	Type  string `json:"type" yaml:"type"`
	Stage string `json:"stage" yaml:"stage"`
	Shape []int  `json:"shape,omitempty" yaml:"shape,omitempty,flow"`
	Bytes int64  `json:"bytes" yaml:"bytes"`
	// Value is the rendered payload of scalar values.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// Step returns the report of the step at plan position index.
func (r *Report) Step(index int) (StepReport, bool) {
	for _, s := range r.Steps {
		if s.Index == index {
			return s, true
		}
	}
	return StepReport{}, false
}

// Value returns the final report of the value stored under key.
func (r *Report) Value(key string) (ValueReport, bool) {
	for _, v := range r.Values {
		if v.Key == key {
			return v, true
		}
	}
	return ValueReport{}, false
}

// WithoutTimings returns a copy with every duration cleared, for golden
// comparison.
func (r *Report) WithoutTimings() *Report {
	c := *r
	c.Duration = 0
	c.Steps = slices.Clone(r.Steps)
	for i := range c.Steps {
		c.Steps[i].Duration = 0
	}
	return &c
}

func describeValue(v *value.Value) ValueReport {
	meta := v.Meta()
	vr := ValueReport{
		Key:   v.Name(),
		Type:  v.TypeName(),
		Stage: v.Stage().String(),
		Shape: meta.Shape,
		Bytes: meta.Bytes,
	}
	if v.Stage() == value.Allocated && len(meta.Shape) == 0 {
		vr.Value = v.Summary()
	}
	return vr
}

func describeKeys(s *value.Store, keys []string) []ValueReport {
	var out []ValueReport
	for _, k := range keys {
		if v, err := s.Lookup(k); err == nil {
			out = append(out, describeValue(v))
		}
	}
	return out
}

func describeStore(s *value.Store) []ValueReport {
	return describeKeys(s, s.Names())
}

func valueRecords(runID string, values []ValueReport) []journal.ValueRecord {
	recs := make([]journal.ValueRecord, len(values))
	for i, v := range values {
		recs[i] = journal.ValueRecord{
			RunID:    runID,
			Name:     v.Key,
			Type:     v.Type,
			Stage:    v.Stage,
			Shape:    v.Shape,
			Bytes:    v.Bytes,
			Rendered: v.Value,
		}
	}
	return recs
}
