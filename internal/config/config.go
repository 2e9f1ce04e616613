// Package config loads orca.toml.
//
//	[run]
//	name      = "norm"           # derives output and log_file when unset
//	output    = "norm.out.yaml"
//	journal   = "orca.db"
//	log_file  = "norm.log"
//	log_level = "info"
//
//	[tracing]
//	enabled      = true
//	exporter     = "stdout"
//	service_name = "orca"
//
// Command-line flags override file values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/orca/internal/tracing"
)

// DefaultFile is read when no --config is given and it exists.
const DefaultFile = "orca.toml"

// Config is the file configuration.
type Config struct {
	Run     Run            `toml:"run"`
	Tracing tracing.Config `toml:"tracing"`
}

// Run holds the settings of the run command.
type Run struct {
	Name     string `toml:"name"`
	Output   string `toml:"output"`
	Journal  string `toml:"journal"`
	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level"`
}

// Default returns the configuration used without a file.
func Default() Config {
	return Config{
		Run:     Run{LogLevel: "info"},
		Tracing: tracing.DefaultConfig(),
	}
}

// Load reads path over the defaults. An empty path reads DefaultFile if
// it exists and returns the defaults otherwise.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := Parse(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML into cfg, rejecting unknown keys, and validates the
// result. Derived file names are left to the caller, who applies
// Run.Derive once command-line overrides are merged.
func Parse(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return err
	}
	return cfg.Validate()
}

// Derive fills output and log file names from the run name, as
// NAME.out.yaml and NAME.log.
func (r *Run) Derive() {
	if r.Name == "" {
		return
	}
	if r.Output == "" {
		r.Output = r.Name + ".out.yaml"
	}
	if r.LogFile == "" {
		r.LogFile = r.Name + ".log"
	}
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Run.LogLevel); err != nil {
		return err
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels. Empty is
// info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log_level %q", s)
	}
}
