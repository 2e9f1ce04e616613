package testutil

import (
	"context"
	"errors"

	"github.com/roach88/orca/internal/argspec"
	"github.com/roach88/orca/internal/step"
	"github.com/roach88/orca/internal/value"
)

// ErrInjected is returned by the Fail step.
var ErrInjected = errors.New("injected failure")

// Register adds the test-only steps to reg:
//
//	Fail        declares its optional real output, then fails in the real phase
//	Undeclared  never declares its optional real output
func Register(reg *step.Registry) error {
	for _, def := range []step.Definition{failDef(), undeclaredDef()} {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

var realType = value.TypeOf[float64]()

func outSpec() *argspec.Spec {
	return argspec.MustNew(nil, []*argspec.Slot{argspec.Ref("Out", "Result.", realType)})
}

type failing struct{ args step.Arguments }

func failDef() step.Definition {
	return step.Definition{
		Name:    "Fail",
		Summary: "Fails in the real phase.",
		Spec:    outSpec(),
		New:     func(args step.Arguments) (step.Step, error) { return failing{args: args}, nil },
	}
}

func (f failing) DryRun(_ context.Context, s *value.Store) error {
	return f.args.DeclareOutput(s, "Out", value.Meta{Type: realType, Bytes: 8})
}

func (failing) Run(context.Context, *value.Store) error { return ErrInjected }

type undeclared struct{ args step.Arguments }

func undeclaredDef() step.Definition {
	return step.Definition{
		Name:    "Undeclared",
		Summary: "Breaks the dry run contract.",
		Spec:    outSpec(),
		New:     func(args step.Arguments) (step.Step, error) { return undeclared{args: args}, nil },
	}
}

func (undeclared) DryRun(context.Context, *value.Store) error { return nil }

func (u undeclared) Run(_ context.Context, s *value.Store) error {
	return u.args.SetOutput(s, "Out", 1.0)
}
