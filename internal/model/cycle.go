package model

import "time"

// CycleOutcome describes how a scan cycle ended.
type CycleOutcome string

const (
	OutcomeUniverseUnavailable  CycleOutcome = "universe_unavailable"
	OutcomeNoSignals            CycleOutcome = "no_signals"
	OutcomeCommitted            CycleOutcome = "committed"
	OutcomeCommittedUnpersisted CycleOutcome = "committed_unpersisted"
	OutcomeCancelled            CycleOutcome = "cancelled"
)

// CycleReport is the audit record of one scan cycle.
type CycleReport struct {
	ID           string       `json:"id"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	Outcome      CycleOutcome `json:"outcome"`
	UniverseSize int          `json:"universe_size"`
	Evaluated    int          `json:"evaluated"`
	Skipped      int          `json:"skipped"`
	Breakouts    int          `json:"breakouts"`
	Breakdowns   int          `json:"breakdowns"`
	Committed    bool         `json:"committed"`
	PersistErr   string       `json:"persist_error,omitempty"`
}

// Duration returns the wall time the cycle took.
func (r *CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
