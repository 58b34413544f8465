package model

import "time"

// Classification labels a qualifying scan result.
type Classification string

const (
	Breakout  Classification = "breakout"
	Breakdown Classification = "breakdown"
)

// ScanResult is one instrument that passed the volume-confirmed pivot rule.
type ScanResult struct {
	Symbol        string         `json:"ticker"`
	LastClose     float64        `json:"last_close"`
	CurrentVolume float64        `json:"current_volume"`
	AvgVolume     float64        `json:"avg_last_3_volume"`
	Upper         float64        `json:"r4"`
	Lower         float64        `json:"s4"`
	Status        Classification `json:"status"`
}

// Snapshot is the current best-known result set. It is never mutated after
// construction; the store swaps whole snapshots.
type Snapshot struct {
	Breakouts  []ScanResult `json:"breakouts"`
	Breakdowns []ScanResult `json:"breakdowns"`
	CycleID    string       `json:"cycle_id,omitempty"`
	UpdatedAt  time.Time    `json:"updated_at,omitzero"`
}

// EmptySnapshot returns a snapshot with non-nil empty slices so it encodes as [].
func EmptySnapshot() *Snapshot {
	return &Snapshot{Breakouts: []ScanResult{}, Breakdowns: []ScanResult{}}
}

// Empty reports whether neither list holds a result.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Breakouts) == 0 && len(s.Breakdowns) == 0)
}
