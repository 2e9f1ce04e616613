package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/orca/internal/config"
	"github.com/roach88/orca/internal/plan"
)

// loadPlan reads a plan file. A missing or unreadable file is a command
// error; a plan that fails to parse or violates the schema is a
// validation failure.
func loadPlan(path string) (*plan.Plan, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("plan file not found: %s", path))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "error accessing plan file", err)
	}
	if info.IsDir() {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("not a file: %s", path))
	}

	p, err := plan.LoadFile(path)
	switch {
	case errors.Is(err, plan.ErrSchema), errors.Is(err, plan.ErrFormat):
		return nil, WrapExitError(ExitFailure, "invalid plan", err)
	case err != nil:
		return nil, WrapExitError(ExitCommandError, "failed to load plan", err)
	}
	return p, nil
}

// loadConfig reads the --config file, or orca.toml when present.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// newLogger builds the text logger commands hand to the engine. Verbose
// forces debug level.
func newLogger(w io.Writer, level string, verbose bool) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log level", err)
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
