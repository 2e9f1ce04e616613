package argspec

import (
	"errors"
	"fmt"

	"github.com/roach88/orca/internal/value"
)

// Argument error codes (E200-E299)
const (
	CodeMissingRequired = "E201" // required input or output not bound
	CodeUnknownName     = "E202" // argument not declared by the step
	CodeTypeMismatch    = "E203" // literal or reference of the wrong type
	CodeInvalidValue    = "E204" // literal fails a declared check
	CodeBadReference    = "E205" // reference is not a non-empty store key
)

var (
	// ErrMissingRequired indicates a required argument was not supplied.
	ErrMissingRequired = errors.New("missing required argument")

	// ErrUnknownName indicates an argument the step does not declare.
	ErrUnknownName = errors.New("unknown argument")

	// ErrTypeMismatch is the store's type mismatch, so errors.Is matches
	// both literal coercion failures and store lookups.
	ErrTypeMismatch = value.ErrTypeMismatch

	// ErrInvalidValue indicates a literal rejected by a slot check.
	ErrInvalidValue = errors.New("invalid argument value")
)

// ArgumentError describes one argument that does not satisfy a Spec.
type ArgumentError struct {
	Code      string    `json:"code"`
	Step      string    `json:"step,omitempty"`
	Direction Direction `json:"direction"`
	Argument  string    `json:"argument"`
	Expected  string    `json:"expected,omitempty"`
	Got       string    `json:"got,omitempty"`
	Err       error     `json:"-"`
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	where := e.Direction.String() + " " + e.Argument
	if e.Step != "" {
		where = e.Step + ": " + where
	}
	switch {
	case e.Expected != "" && e.Got != "":
		return fmt.Sprintf("[%s] %s: %v: expected %s, got %s", e.Code, where, e.Err, e.Expected, e.Got)
	case e.Expected != "":
		return fmt.Sprintf("[%s] %s: %v: expected %s", e.Code, where, e.Err, e.Expected)
	default:
		return fmt.Sprintf("[%s] %s: %v", e.Code, where, e.Err)
	}
}

// Unwrap returns the sentinel for errors.Is.
func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// ArgumentErrors returns every ArgumentError contained in err, which may be
// a single error or one built with errors.Join.
func ArgumentErrors(err error) []*ArgumentError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*ArgumentError
		for _, e := range joined.Unwrap() {
			out = append(out, ArgumentErrors(e)...)
		}
		return out
	}
	var ae *ArgumentError
	if errors.As(err, &ae) {
		return []*ArgumentError{ae}
	}
	return nil
}
