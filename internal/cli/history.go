package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/orca/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Phase   string // optional - filter steps to one phase
}

// RunSummary is one journaled run.
type RunSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	PlanHash string `json:"plan_hash"`
	Mode     string `json:"mode"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// HistoryStep is one step record in a run's timeline.
type HistoryStep struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Phase     string `json:"phase"`
	Status    string `json:"status"`
	Duration  int64  `json:"duration_ns"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HistoryValue is a store entry recorded at the end of a run.
type HistoryValue struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Stage    string `json:"stage"`
	Shape    []int  `json:"shape,omitempty"`
	Bytes    int64  `json:"bytes"`
	Rendered string `json:"value,omitempty"`
}

// RunHistory is the full record of one run.
type RunHistory struct {
	Run    RunSummary     `json:"run"`
	Steps  []HistoryStep  `json:"steps"`
	Values []HistoryValue `json:"values"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show journaled runs",
		Long: `Show runs recorded with --journal.

Without a run id, lists every run. With a run id, shows the step
records of the run and the values its store held at the end.

Examples:
  orca history --journal orca.db
  orca history --journal orca.db 01928c3e-...
  orca history --journal orca.db 01928c3e-... --phase real --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runHistory(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to the SQLite journal (default run.journal from config)")
	cmd.Flags().StringVar(&opts.Phase, "phase", "", "show only steps of this phase (dry|real)")

	return cmd
}

func runHistory(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	path := opts.Journal
	if path == "" {
		cfg, err := loadConfig(opts.ConfigPath)
		if err != nil {
			return err
		}
		path = cfg.Run.Journal
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no journal: pass --journal or set run.journal")
	}
	// Open would create a missing database.
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	j, err := journal.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	if runID == "" {
		runs, err := j.Runs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read runs", err)
		}
		summaries := make([]RunSummary, len(runs))
		for i, r := range runs {
			summaries[i] = summarize(r)
		}
		if formatter.Format == "json" {
			return formatter.Success(summaries)
		}
		return outputRunsText(formatter, summaries)
	}

	h, err := loadHistory(ctx, j, runID, opts.Phase)
	if errors.Is(err, journal.ErrRunNotFound) {
		return WrapExitError(ExitCommandError, "unknown run", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(h)
	}
	return outputHistoryText(formatter, h)
}

func loadHistory(ctx context.Context, j *journal.Store, runID, phase string) (RunHistory, error) {
	run, err := j.Run(ctx, runID)
	if err != nil {
		return RunHistory{}, err
	}
	records, err := j.Steps(ctx, runID)
	if err != nil {
		return RunHistory{}, err
	}
	values, err := j.Values(ctx, runID)
	if err != nil {
		return RunHistory{}, err
	}

	h := RunHistory{Run: summarize(run), Steps: []HistoryStep{}, Values: []HistoryValue{}}
	for _, rec := range records {
		if phase != "" && rec.Phase != phase {
			continue
		}
		h.Steps = append(h.Steps, HistoryStep{
			Index:     rec.Index,
			Name:      rec.Name,
			Phase:     rec.Phase,
			Status:    rec.Status,
			Duration:  rec.Duration.Nanoseconds(),
			ErrorKind: rec.ErrorKind,
			Error:     rec.Error,
		})
	}
	for _, v := range values {
		h.Values = append(h.Values, HistoryValue{
			Name:     v.Name,
			Type:     v.Type,
			Stage:    v.Stage,
			Shape:    v.Shape,
			Bytes:    v.Bytes,
			Rendered: v.Rendered,
		})
	}
	return h, nil
}

func summarize(r journal.Run) RunSummary {
	return RunSummary{
		ID:       r.ID,
		Name:     r.Name,
		PlanHash: r.PlanHash,
		Mode:     r.Mode,
		Status:   r.Status,
		Error:    r.Error,
	}
}

func outputRunsText(formatter *OutputFormatter, runs []RunSummary) error {
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tNAME\tMODE\tSTATUS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Mode, r.Status)
	}
	return tw.Flush()
}

func outputHistoryText(formatter *OutputFormatter, h RunHistory) error {
	w := formatter.Writer
	fmt.Fprintf(w, "Run: %s\n", h.Run.ID)
	if h.Run.Name != "" {
		fmt.Fprintf(w, "Name: %s\n", h.Run.Name)
	}
	fmt.Fprintf(w, "Mode: %s\n", h.Run.Mode)
	fmt.Fprintf(w, "Status: %s\n", h.Run.Status)
	if h.Run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", h.Run.Error)
	}
	formatter.VerboseLog("Plan hash: %s", h.Run.PlanHash)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Steps:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range h.Steps {
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s", s.Phase, s.Index, s.Name, s.Status)
		if s.ErrorKind != "" {
			fmt.Fprintf(tw, "\t%s: %s", s.ErrorKind, s.Error)
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Values:")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, v := range h.Values {
		detail := v.Rendered
		if detail == "" && len(v.Shape) > 0 {
			detail = fmt.Sprint(v.Shape)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", v.Name, v.Type, v.Stage, detail)
	}
	return tw.Flush()
}
