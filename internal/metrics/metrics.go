// Package metrics exposes the screener's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScanCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_scan_cycles_total",
			Help: "Scan cycles by outcome",
		},
		[]string{"outcome"},
	)

	ScanCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screener_scan_cycle_duration_seconds",
			Help:    "Wall time of a full scan cycle",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 300},
		},
	)

	Instruments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_instruments_total",
			Help: "Instruments processed by status (evaluated, skipped)",
		},
		[]string{"status"},
	)

	SnapshotResults = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "screener_snapshot_results",
			Help: "Results in the live snapshot by classification",
		},
		[]string{"classification"},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screener_snapshot_persist_failures_total",
			Help: "Durable snapshot writes that failed",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)
)

// SetSnapshotSize publishes the live snapshot's result counts.
func SetSnapshotSize(breakouts, breakdowns int) {
	SnapshotResults.WithLabelValues("breakout").Set(float64(breakouts))
	SnapshotResults.WithLabelValues("breakdown").Set(float64(breakdowns))
}
