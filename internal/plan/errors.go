package plan

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema indicates a plan that does not match the plan schema.
	ErrSchema = errors.New("plan schema violation")

	// ErrFormat indicates an unreadable plan file.
	ErrFormat = errors.New("unsupported plan format")
)

// SchemaError is one schema violation.
type SchemaError struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	// Step is the 1-based position of the offending descriptor, or 0
	// when the violation is not inside a step.
	Step    int    `json:"step,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var where []string
	if e.File != "" {
		loc := e.File
		if e.Line > 0 {
			loc = fmt.Sprintf("%s:%d", e.File, e.Line)
		}
		where = append(where, loc)
	}
	if e.Step > 0 {
		where = append(where, fmt.Sprintf("step %d", e.Step))
	}
	if e.Field != "" {
		where = append(where, e.Field)
	}
	if len(where) == 0 {
		return e.Message
	}
	return strings.Join(where, ": ") + ": " + e.Message
}

// Unwrap returns ErrSchema.
func (e *SchemaError) Unwrap() error { return ErrSchema }
