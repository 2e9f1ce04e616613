package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/orca/internal/argspec"
	"github.com/roach88/orca/internal/step"
)

// SlotInfo documents one step argument.
type SlotInfo struct {
	Name     string `json:"name"`
	Types    string `json:"types"`
	Kind     string `json:"kind"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
	Doc      string `json:"doc,omitempty"`
}

// StepDoc documents one step type.
type StepDoc struct {
	Name    string     `json:"name"`
	Summary string     `json:"summary,omitempty"`
	Inputs  []SlotInfo `json:"inputs"`
	Outputs []SlotInfo `json:"outputs"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <step>",
		Short: "Show the arguments of a step type",
		Long: `Show the inputs and outputs of a step type with their types,
defaults and checks. Step names match ignoring case, '-', '_' and spaces.

Examples:
  orca describe TensorContraction
  orca describe tensor-norm --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(rootOpts, args[0], cmd)
		},
	}
}

func runDescribe(opts *RootOptions, name string, cmd *cobra.Command) error {
	reg, err := opts.registry()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register steps", err)
	}
	formatter := opts.formatter(cmd)

	def, err := reg.Lookup(name)
	if errors.Is(err, step.ErrUnknownStepType) {
		_ = formatter.Error(ErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "no such step", err)
	}
	if err != nil {
		return err
	}

	if formatter.Format == "json" {
		return formatter.Success(StepDoc{
			Name:    def.Name,
			Summary: def.Summary,
			Inputs:  slotInfos(def.Spec.Inputs()),
			Outputs: slotInfos(def.Spec.Outputs()),
		})
	}
	_, err = fmt.Fprint(formatter.Writer, def.Doc())
	return err
}

func slotInfos(slots []*argspec.Slot) []SlotInfo {
	infos := make([]SlotInfo, len(slots))
	for i, s := range slots {
		def, _ := s.DefaultValue()
		infos[i] = SlotInfo{
			Name:     s.Name(),
			Types:    s.TypeNames(),
			Kind:     s.Kind().String(),
			Required: s.IsRequired(),
			Default:  def,
			Doc:      s.Doc(),
		}
	}
	return infos
}
