package steps

import (
	"context"

	"github.com/roach88/orca/internal/argspec"
	"github.com/roach88/orca/internal/step"
	"github.com/roach88/orca/internal/value"
)

// Delete

type deletion struct{ args step.Arguments }

func deleteData() step.Definition {
	return step.Definition{
		Name:    "Delete",
		Summary: "Releases a value and removes its name. Dry runs mark it freed.",
		Spec: argspec.MustNew(
			[]*argspec.Slot{argspec.Ref("Data", "The value to delete.").Required()},
			nil,
		),
		New: func(args step.Arguments) (step.Step, error) { return &deletion{args: args}, nil },
	}
}

func (d *deletion) DryRun(_ context.Context, s *value.Store) error {
	key, _ := d.args.Key("Data")
	return s.MarkFreed(key)
}

func (d *deletion) Run(_ context.Context, s *value.Store) error {
	key, _ := d.args.Key("Data")
	d.args.Logger().Debug("delete", "key", key)
	return s.Erase(key)
}

// Nop

type noop struct{}

func nop() step.Definition {
	return step.Definition{
		Name:    "Nop",
		Summary: "Does nothing.",
		Spec:    argspec.MustNew(nil, nil),
		New:     func(step.Arguments) (step.Step, error) { return noop{}, nil },
	}
}

func (noop) DryRun(context.Context, *value.Store) error { return nil }
func (noop) Run(context.Context, *value.Store) error    { return nil }

// Exit

type stop struct{}

func exit() step.Definition {
	return step.Definition{
		Name:    "Exit",
		Summary: "Ends the run successfully; later steps are skipped.",
		Spec:    argspec.MustNew(nil, nil),
		New:     func(step.Arguments) (step.Step, error) { return stop{}, nil },
	}
}

func (stop) DryRun(context.Context, *value.Store) error { return step.ErrStop }
func (stop) Run(context.Context, *value.Store) error    { return step.ErrStop }

// Echo

type echoStep struct{ args step.Arguments }

func echo() step.Definition {
	return step.Definition{
		Name:    "Echo",
		Summary: "Logs a text.",
		Spec: argspec.MustNew(
			[]*argspec.Slot{argspec.Value("text", "The text to log.", textType).Required()},
			nil,
		),
		New: func(args step.Arguments) (step.Step, error) { return &echoStep{args: args}, nil },
	}
}

func (e *echoStep) DryRun(context.Context, *value.Store) error { return nil }

func (e *echoStep) Run(_ context.Context, s *value.Store) error {
	text, err := step.Input[string](e.args, s, "text")
	if err != nil {
		return err
	}
	e.args.Logger().Info(text)
	return nil
}
