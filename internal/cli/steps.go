package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// StepInfo is one registered step type.
type StepInfo struct {
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}

// NewStepsCommand creates the steps command.
func NewStepsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "steps",
		Short:         "List registered step types",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSteps(rootOpts, cmd)
		},
	}
}

func runSteps(opts *RootOptions, cmd *cobra.Command) error {
	reg, err := opts.registry()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register steps", err)
	}

	defs := reg.Definitions()
	infos := make([]StepInfo, len(defs))
	for i, d := range defs {
		infos[i] = StepInfo{Name: d.Name, Summary: d.Summary}
	}

	formatter := opts.formatter(cmd)
	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\n", info.Name, info.Summary)
	}
	return tw.Flush()
}
