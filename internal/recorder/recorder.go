package recorder

import "PivotScreener/internal/model"

// Recorder keeps an audit trail of scan cycles for analysis.
type Recorder interface {
	RecordCycle(report *model.CycleReport) error
	RecentCycles(limit int) ([]model.CycleReport, error)
	Close() error
}
