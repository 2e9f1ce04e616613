// Package plan loads the ordered step list a run executes.
//
// A plan is a YAML list, or a CUE file with a top-level `steps` list, of
// step descriptors:
//
//	- name: GenerateRandomTensor
//	  in:  {dimensions: [10, 10]}
//	  out: {Result: $X}
//	  note: random start
//	- name: TensorNorm
//	  in:  {Data: $X}
//	  out: {Norm: n}
//	  fallible: true
//
// Every plan is checked against the embedded CUE schema before it is
// decoded. Steps with `disable: true` or `enable: false` are dropped.
package plan

import "strconv"

// Step is one step descriptor.
type Step struct {
	Name     string         `json:"name" yaml:"name"`
	In       map[string]any `json:"in,omitempty" yaml:"in,omitempty"`
	Out      map[string]any `json:"out,omitempty" yaml:"out,omitempty"`
	Note     string         `json:"note,omitempty" yaml:"note,omitempty"`
	Fallible bool           `json:"fallible,omitempty" yaml:"fallible,omitempty"`
	Disable  bool           `json:"disable,omitempty" yaml:"disable,omitempty"`
	Enable   *bool          `json:"enable,omitempty" yaml:"enable,omitempty"`

	// Position is the 1-based index in the source list, counting
	// disabled steps.
	Position int `json:"-" yaml:"-"`
	// Line is the source line of the descriptor, when known.
	Line int `json:"-" yaml:"-"`
}

// Enabled reports whether the step takes part in the run.
func (s Step) Enabled() bool {
	if s.Disable {
		return false
	}
	return s.Enable == nil || *s.Enable
}

// Label identifies the step in messages: "2 (TensorNorm)".
func (s Step) Label() string {
	return strconv.Itoa(s.Position) + " (" + s.Name + ")"
}

// Plan is an ordered list of enabled steps.
type Plan struct {
	// Source is the file the plan was loaded from, if any.
	Source string
	Steps  []Step
	// Disabled counts the steps dropped at load time.
	Disabled int
}

// New builds a plan from descriptors, numbering them and dropping
// disabled ones. Harnesses and tests build plans in code with it.
func New(steps ...Step) *Plan {
	p := &Plan{}
	for i, s := range steps {
		s.Position = i + 1
		if !s.Enabled() {
			p.Disabled++
			continue
		}
		p.Steps = append(p.Steps, s)
	}
	return p
}
