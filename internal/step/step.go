// Package step defines the contract every pipeline step implements and the
// registry the engine creates steps from.
//
// A step type is a Definition: a name, an argument Spec, and a Constructor.
// Step packages expose a Register function that adds their definitions to
// a Registry during start-up; the engine only ever sees the Registry.
package step

import (
	"context"
	"errors"

	"github.com/roach88/orca/internal/argspec"
	"github.com/roach88/orca/internal/value"
)

// ErrStop is returned by a step to end the current phase early without
// failing the run.
var ErrStop = errors.New("stop requested")

// Step is one configured unit of computation.
//
// DryRun must declare (value.Store.Declare) every bound output the real
// run would produce, without doing the computation or allocating heavy
// payloads. Run reads inputs from the store and writes outputs back.
// Both only borrow payloads for the duration of the call.
type Step interface {
	DryRun(ctx context.Context, s *value.Store) error
	Run(ctx context.Context, s *value.Store) error
}

// Constructor builds a step from its resolved arguments. It is called
// once per configured step and may reject literal combinations its Spec
// cannot express.
type Constructor func(args Arguments) (Step, error)

// Definition describes one step type.
type Definition struct {
	Name    string
	Summary string
	Spec    *argspec.Spec
	New     Constructor
}

// Doc renders the definition for `orca describe`.
func (d Definition) Doc() string {
	doc := d.Name + "\n"
	if d.Summary != "" {
		doc += "  " + d.Summary + "\n"
	}
	return doc + "\n" + d.Spec.Doc()
}
