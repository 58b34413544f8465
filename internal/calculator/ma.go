package calculator

import (
	"errors"

	"PivotScreener/internal/model"
)

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// TrailingAverageVolume returns the mean volume of the period sessions
// immediately before the most recent one. The most recent bar is excluded.
func TrailingAverageVolume(bars []model.OHLCV, period int) (float64, error) {
	if len(bars) < period+1 {
		return 0, model.ErrInsufficientHistory
	}
	return CalculateSMA(extractVolumes(bars[:len(bars)-1]), period)
}

func extractVolumes(bars []model.OHLCV) []float64 {
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = b.Volume
	}
	return volumes
}
