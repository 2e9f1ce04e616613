package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/orca/internal/engine"
	"github.com/roach88/orca/internal/plan"
)

// Problem is one reason a plan cannot run.
type Problem struct {
	Phase   string `json:"phase"`
	Step    int    `json:"step,omitempty"`
	Name    string `json:"name,omitempty"`
	Line    int    `json:"line,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Plan     string    `json:"plan"`
	Steps    int       `json:"steps"`
	Valid    bool      `json:"valid"`
	Problems []Problem `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <plan>",
		Short: "Check a plan without running it",
		Long: `Check a plan against the plan schema and the registered steps.

Reports every unknown step type, bad argument, missing input and type
mismatch at once. No step runs, not even its dry run.

Examples:
  orca validate plan.yaml
  orca validate plan.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, planPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	p, err := loadPlan(planPath)
	if err != nil {
		if GetExitCode(err) != ExitFailure {
			_ = formatter.Error(ErrorCode(err), err.Error(), nil)
			return err
		}
		return outputValidation(formatter, ValidationResult{Plan: planPath, Problems: problems(nil, err)})
	}
	formatter.VerboseLog("Loaded %d step(s) from %s (%d disabled)", len(p.Steps), planPath, p.Disabled)

	reg, err := opts.registry()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register steps", err)
	}
	eng := engine.New(reg, engine.WithLogger(discardLogger()))

	result := ValidationResult{Plan: planPath, Steps: len(p.Steps)}
	if err := eng.Validate(cmd.Context(), p); err != nil {
		result.Problems = problems(p, err)
	}
	return outputValidation(formatter, result)
}

// problems flattens a joined validation error, one entry per step or
// schema violation.
func problems(p *plan.Plan, err error) []Problem {
	var out []Problem
	for _, e := range flatten(err) {
		pr := Problem{Phase: string(engine.PhaseLoad), Kind: engine.Kind(e), Message: e.Error()}

		var se *engine.StepError
		var schema *plan.SchemaError
		switch {
		case errors.As(e, &se):
			pr.Phase = string(se.Phase)
			pr.Step = se.Index
			pr.Name = se.Step
			pr.Message = se.Err.Error()
			pr.Line = lineOf(p, se.Index)
		case errors.As(e, &schema):
			pr.Step = schema.Step
			pr.Line = schema.Line
			pr.Message = schema.Message
			if schema.Field != "" {
				pr.Message = schema.Field + ": " + schema.Message
			}
		}
		out = append(out, pr)
	}
	return out
}

func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err != nil {
		return flatten(exitErr.Err)
	}
	return []error{err}
}

func lineOf(p *plan.Plan, position int) int {
	if p == nil {
		return 0
	}
	for _, st := range p.Steps {
		if st.Position == position {
			return st.Line
		}
	}
	return 0
}

func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	result.Valid = len(result.Problems) == 0
	var failure error
	if !result.Valid {
		failure = NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Problems)))
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: result.Problems[0].Kind, Message: result.Problems[0].Message}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	if result.Valid {
		fmt.Fprintf(w, "✓ %s: %d step(s) valid\n", result.Plan, result.Steps)
		return nil
	}

	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, pr := range result.Problems {
		switch {
		case pr.Step > 0 && pr.Name != "":
			fmt.Fprintf(w, "step %d (%s), %s phase", pr.Step, pr.Name, pr.Phase)
		case pr.Step > 0:
			fmt.Fprintf(w, "step %d, %s phase", pr.Step, pr.Phase)
		default:
			fmt.Fprintf(w, "%s phase", pr.Phase)
		}
		if pr.Line > 0 {
			fmt.Fprintf(w, ", line %d", pr.Line)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s: %s\n\n", pr.Kind, pr.Message)
	}
	return failure
}
