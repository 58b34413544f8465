package strategy

import (
	"fmt"

	"PivotScreener/internal/calculator"
	"PivotScreener/internal/model"
)

const (
	// MinBars is the shortest window that yields a trailing volume baseline.
	MinBars = 4
	// VolumeLookback is the number of sessions averaged for the volume gate.
	VolumeLookback = 3
)

// Evaluate applies the volume-confirmed pivot rule to one instrument's window.
// It returns nil, nil when the instrument does not qualify.
func Evaluate(symbol string, bars []model.OHLCV) (*model.ScanResult, error) {
	if len(bars) < MinBars {
		return nil, fmt.Errorf("%s: %d bars, need %d: %w", symbol, len(bars), MinBars, model.ErrInsufficientHistory)
	}

	levels, err := calculator.CalculatePivotLevels(bars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	avgVolume, err := calculator.TrailingAverageVolume(bars, VolumeLookback)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	return Classify(symbol, bars[len(bars)-1], avgVolume, levels), nil
}

// Classify decides breakout/breakdown for the latest session given its
// trailing volume baseline and the prior session's pivot levels.
func Classify(symbol string, last model.OHLCV, avgVolume float64, levels model.PivotLevels) *model.ScanResult {
	if last.Volume <= avgVolume {
		return nil
	}

	var status model.Classification
	switch {
	case last.Close > levels.Upper:
		status = model.Breakout
	case last.Close < levels.Lower:
		status = model.Breakdown
	default:
		return nil
	}

	return &model.ScanResult{
		Symbol:        symbol,
		LastClose:     last.Close,
		CurrentVolume: last.Volume,
		AvgVolume:     avgVolume,
		Upper:         levels.Upper,
		Lower:         levels.Lower,
		Status:        status,
	}
}
