// Package testutil holds deterministic helpers shared by tests and the
// scenario harness.
package testutil

import (
	"io"
	"log/slog"
)

// FixedRunID returns the same run id every time.
//
// Unlike engine.FixedGenerator, which hands out a list of ids once each,
// FixedRunID can be reused by any number of runs, so the same scenario
// produces identical reports on every execution.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator for id. An empty id becomes
// "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed id.
func (g *FixedRunID) Generate() string {
	return g.id
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
