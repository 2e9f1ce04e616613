package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/orca/internal/engine"
	"github.com/roach88/orca/internal/plan"
)

// Scenario is one conformance case.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Plan is an inline plan, a list of step descriptors.
	Plan yaml.Node `yaml:"plan,omitempty"`
	// PlanFile is a plan path relative to the scenario file.
	PlanFile string `yaml:"plan_file,omitempty"`

	// DryOnly stops after the dry phase.
	DryOnly bool `yaml:"dry_only,omitempty"`
	// RunID defaults to "scenario-<name>".
	RunID string `yaml:"run_id,omitempty"`

	Expect Expectations `yaml:"expect"`
}

// Expectations describe the outcome. Unset fields are not checked.
type Expectations struct {
	// Error expects the run to fail. Without it any error fails the
	// scenario.
	Error *ErrorExpectation `yaml:"error,omitempty"`
	// Status is ok, failed or stopped.
	Status string `yaml:"status,omitempty"`
	// Steps is the number of step reports in the last phase reached.
	Steps *int `yaml:"steps,omitempty"`
	// Values are checked against the final store, keyed by store key.
	Values map[string]ValueExpectation `yaml:"values,omitempty"`
}

// ErrorExpectation matches a run error.
type ErrorExpectation struct {
	// Kind is an engine error kind such as NotFound.
	Kind  string `yaml:"kind"`
	Phase string `yaml:"phase,omitempty"`
	// Step is the 1-based plan position of the failing step.
	Step int `yaml:"step,omitempty"`
}

// ValueExpectation matches one store value.
type ValueExpectation struct {
	Type  string `yaml:"type,omitempty"`
	Stage string `yaml:"stage,omitempty"`
	Shape []int  `yaml:"shape,omitempty"`
	// Min, Max and Equals need an allocated payload, so only apply to
	// real runs.
	Min    *float64 `yaml:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty"`
	Equals any      `yaml:"equals,omitempty"`
}

// LoadScenario reads a scenario file. Unknown fields are rejected and
// plan_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.PlanFile != "" && !filepath.IsAbs(s.PlanFile) {
		s.PlanFile = filepath.Join(filepath.Dir(path), s.PlanFile)
	}
	return s, nil
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	inline := s.Plan.Kind != 0
	if inline == (s.PlanFile != "") {
		return fmt.Errorf("exactly one of plan and plan_file is required")
	}
	if inline && s.Plan.Kind != yaml.SequenceNode {
		return fmt.Errorf("plan must be a list of steps (line %d)", s.Plan.Line)
	}
	if e := s.Expect.Error; e != nil {
		if e.Kind == "" {
			return fmt.Errorf("expect.error: kind is required")
		}
		switch engine.Phase(e.Phase) {
		case "", engine.PhaseLoad, engine.PhaseValidate, engine.PhaseDry, engine.PhaseReal:
		default:
			return fmt.Errorf("expect.error: unknown phase %q", e.Phase)
		}
	}
	if s.Expect.Steps != nil && *s.Expect.Steps < 0 {
		return fmt.Errorf("expect.steps must be non-negative")
	}
	for key, v := range s.Expect.Values {
		if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
			return fmt.Errorf("expect.values.%s: min is greater than max", key)
		}
		if s.DryOnly && (v.Min != nil || v.Max != nil || v.Equals != nil) {
			return fmt.Errorf("expect.values.%s: min, max and equals need a real run", key)
		}
	}
	return nil
}

// LoadPlan returns the scenario's plan.
func (s *Scenario) LoadPlan() (*plan.Plan, error) {
	if s.PlanFile != "" {
		return plan.LoadFile(s.PlanFile)
	}
	data, err := yaml.Marshal(&s.Plan)
	if err != nil {
		return nil, fmt.Errorf("encode inline plan: %w", err)
	}
	p, err := plan.Parse(data)
	if err != nil {
		return nil, err
	}
	p.Source = s.Name
	return p, nil
}

func (s *Scenario) runID() string {
	if s.RunID != "" {
		return s.RunID
	}
	return "scenario-" + s.Name
}
