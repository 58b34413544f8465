package model

import "errors"

var (
	// ErrUniverseUnavailable aborts a cycle; the previous snapshot stays live.
	ErrUniverseUnavailable = errors.New("universe unavailable")
	// ErrInstrumentDataUnavailable skips a single instrument.
	ErrInstrumentDataUnavailable = errors.New("instrument data unavailable")
	// ErrInsufficientHistory skips a single instrument with too few sessions.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrPersistence means the durable write failed after an in-memory commit.
	ErrPersistence = errors.New("snapshot persistence failed")
	// ErrCycleInProgress is returned when a trigger arrives while scanning.
	ErrCycleInProgress = errors.New("scan cycle already in progress")
)
