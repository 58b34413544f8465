package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"PivotScreener/internal/model"
)

// pivotFactor scales the reference session's range into the outer bands.
var pivotFactor = decimal.RequireFromString("1.1")

// CalculatePivotLevels derives the upper/lower bands from the second-to-last
// bar, the last fully closed session before the one under evaluation.
//
//	upper = close + 1.1 * (high - low)
//	lower = close - 1.1 * (high - low)
func CalculatePivotLevels(bars []model.OHLCV) (model.PivotLevels, error) {
	if len(bars) < 2 {
		return model.PivotLevels{}, fmt.Errorf("pivot levels need 2 bars, got %d: %w", len(bars), model.ErrInsufficientHistory)
	}
	ref := bars[len(bars)-2]

	closePx := decimal.NewFromFloat(ref.Close)
	span := decimal.NewFromFloat(ref.High).Sub(decimal.NewFromFloat(ref.Low)).Mul(pivotFactor)

	return model.PivotLevels{
		Upper: closePx.Add(span).InexactFloat64(),
		Lower: closePx.Sub(span).InexactFloat64(),
	}, nil
}
