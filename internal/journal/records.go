package journal

import "time"

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusStopped = "stopped"
)

// Run is one engine invocation.
type Run struct {
	ID       string
	Name     string
	PlanHash string
	// Mode is "dry" or "real".
	Mode   string
	Status string
	// StartedSeq orders runs started by the same engine.
	StartedSeq int64
	Error      string
}

// StepRecord is the outcome of one step in one phase.
type StepRecord struct {
	RunID     string
	Index     int
	Name      string
	Phase     string
	Status    string
	Duration  time.Duration
	ErrorKind string
	Error     string
}

// ValueRecord is a store entry as it stood when the run finished.
type ValueRecord struct {
	RunID    string
	Name     string
	Type     string
	Stage    string
	Shape    []int
	Bytes    int64
	Rendered string
}
