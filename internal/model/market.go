package model

import "time"

// OHLCV represents a single daily session bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PivotLevels holds the breakout/breakdown bands derived from a prior session.
type PivotLevels struct {
	Upper float64
	Lower float64
}
