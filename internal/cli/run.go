package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/orca/internal/config"
	"github.com/roach88/orca/internal/engine"
	"github.com/roach88/orca/internal/journal"
	"github.com/roach88/orca/internal/tracing"
	"github.com/roach88/orca/internal/value"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Dry     bool
	Name    string
	Output  string
	Journal string
	LogFile string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <plan>",
		Short: "Run a plan",
		Long: `Run the steps of a plan file (.yaml, .yml or .cue).

The plan is loaded, validated and dry-run first. Only when every step
passes the dry run do the steps compute. With --dry the run stops after
the dry phase and reports the declared outputs and the estimated peak
memory.

--name NAME writes the report to NAME.out.yaml and the log to NAME.log
unless --out or --log say otherwise.

Examples:
  orca run plan.yaml
  orca run --dry plan.cue
  orca run --name norm --journal orca.db plan.yaml
  orca run plan.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Dry, "dry", false, "stop after the dry phase")
	cmd.Flags().StringVar(&opts.Name, "name", "", "run name; derives the --out and --log defaults")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "write the YAML report to this file")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the run in this SQLite journal")
	cmd.Flags().StringVar(&opts.LogFile, "log", "", "also write the log to this file")

	return cmd
}

// runSettings merges the config file with the flags; flags win.
func runSettings(opts *RunOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.Run.Name = opts.Name
	}
	if flags.Changed("out") {
		cfg.Run.Output = opts.Output
	}
	if flags.Changed("journal") {
		cfg.Run.Journal = opts.Journal
	}
	if flags.Changed("log") {
		cfg.Run.LogFile = opts.LogFile
	}
	cfg.Run.Derive()
	return cfg, nil
}

func runPlan(opts *RunOptions, planPath string, cmd *cobra.Command) (err error) {
	cfg, err := runSettings(opts, cmd)
	if err != nil {
		return err
	}

	// Hooks registered below run on every return path.
	var hooks shutdown
	defer func() {
		if herr := hooks.run(context.Background()); herr != nil && err == nil {
			err = WrapExitError(ExitCommandError, "shutdown failed", herr)
		}
	}()

	logWriter := cmd.ErrOrStderr()
	if cfg.Run.LogFile != "" {
		f, err := os.Create(cfg.Run.LogFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create log file", err)
		}
		hooks.add(func(context.Context) error { return f.Close() })
		logWriter = io.MultiWriter(logWriter, f)
	}
	logger, err := newLogger(logWriter, cfg.Run.LogLevel, opts.Verbose)
	if err != nil {
		return err
	}
	hooks.logger = logger

	p, err := loadPlan(planPath)
	if err != nil {
		return err
	}
	reg, err := opts.registry()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register steps", err)
	}

	provider, err := tracing.NewProvider(cfg.Tracing, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start tracing", err)
	}
	hooks.add(provider.Shutdown)

	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithTracer(provider.Tracer()),
		engine.WithRunIDGenerator(opts.RunIDs),
	}
	if cfg.Run.Journal != "" {
		logger.Debug("opening journal", "path", cfg.Run.Journal)
		j, err := journal.Open(cfg.Run.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		hooks.add(func(context.Context) error { return j.Close() })
		engOpts = append(engOpts, engine.WithJournal(j))
	}
	eng := engine.New(reg, engOpts...)

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var report *engine.Report
	var runErr error
	if opts.Dry {
		report, runErr = eng.DryRun(ctx, p, engine.WithName(cfg.Run.Name))
	} else {
		report, runErr = eng.Run(ctx, p, value.NewStore(), engine.WithName(cfg.Run.Name))
	}

	if cfg.Run.Output != "" && report != nil {
		if err := writeReport(cfg.Run.Output, report); err != nil {
			return WrapExitError(ExitCommandError, "failed to write report", err)
		}
		logger.Debug("report written", "path", cfg.Run.Output)
	}

	f := opts.formatter(cmd)
	if opts.Format == "json" {
		if err := f.JSON(report, runErr); err != nil {
			return err
		}
	} else if report != nil {
		printReport(f.Writer, report)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return WrapExitError(ExitFailure, "run interrupted", runErr)
		}
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	return nil
}

// writeReport writes r as YAML.
func writeReport(path string, r *engine.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printReport(w io.Writer, r *engine.Report) {
	fmt.Fprintf(w, "Run %s (%s, %s): %s\n", r.RunID, r.Name, r.Mode, r.Status)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range r.Steps {
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n", s.Index, s.Name, s.Status, s.Duration, describeOutputs(s.Outputs))
		if s.Error != "" {
			fmt.Fprintf(tw, "\t\t\t\t%s: %s\n", s.ErrorKind, s.Error)
		}
	}
	tw.Flush()

	fmt.Fprintf(w, "Estimated peak memory: %d bytes\n", r.PeakBytes)
	if r.Failed > 0 {
		fmt.Fprintf(w, "Fallible steps failed: %d\n", r.Failed)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error [%s]: %s\n", r.ErrorKind, r.Error)
	}
}

func describeOutputs(values []engine.ValueReport) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		switch {
		case v.Value != "":
			out += fmt.Sprintf("%s = %s", v.Key, v.Value)
		case len(v.Shape) > 0:
			out += fmt.Sprintf("%s: %s %v", v.Key, v.Type, v.Shape)
		default:
			out += fmt.Sprintf("%s: %s", v.Key, v.Type)
		}
	}
	return out
}

// shutdown runs cleanup functions in reverse order of registration.
type shutdown struct {
	fns    []func(context.Context) error
	logger *slog.Logger
}

func (s *shutdown) add(fn func(context.Context) error) {
	s.fns = append(s.fns, fn)
}

func (s *shutdown) run(ctx context.Context) error {
	var errs []error
	for i := len(s.fns) - 1; i >= 0; i-- {
		if err := s.fns[i](ctx); err != nil {
			if s.logger != nil {
				s.logger.Error("shutdown hook failed", "error", err)
			}
			errs = append(errs, err)
		}
	}
	s.fns = nil
	return errors.Join(errs...)
}
