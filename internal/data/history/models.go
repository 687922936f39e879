package history

import "time"

const SchemaVersion = 1

// Outcome values recorded for a run.
const (
	OutcomeOK       = "ok"
	OutcomeCycle    = "cycle"
	OutcomeNotFound = "not_found"
)

// Resolution is one recorded closure computation.
type Resolution struct {
	RunID           string
	Package         string
	Source          string
	Outcome         string
	CycleNode       string
	Dependencies    []string
	NodeCount       int
	EdgeCount       int
	Duration        time.Duration
	Timestamp       time.Time
	CommitHash      string
	CommitTimestamp time.Time
}
