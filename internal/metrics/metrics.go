// Package metrics provides Prometheus metrics for Fare Guardian.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fareguard"

// Batch metrics
var (
	// ChecksTotal counts per-alert outcomes.
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "checks_total",
			Help:      "Alert checks by outcome",
		},
		[]string{"outcome"},
	)

	// BatchRunsTotal counts batch runs by result (ok, setup_failed).
	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Batch runs by result",
		},
		[]string{"result"},
	)

	// BatchDuration tracks wall time of a full batch run.
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Batch run duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	// StoreErrorsTotal counts failed store operations by operation name.
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Failed alert store operations",
		},
		[]string{"op"},
	)
)

// Session metrics
var (
	// SessionsInUse tracks held automation session slots.
	SessionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "in_use",
			Help:      "Automation session slots currently held",
		},
	)

	// FetchDuration tracks price fetch latency.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "fetch_duration_seconds",
			Help:      "Price fetch latency in seconds",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"result"},
	)
)

// Notification metrics
var (
	// NotificationsTotal counts delivery attempts by channel and result.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "total",
			Help:      "Notification attempts by channel and result",
		},
		[]string{"channel", "result"},
	)
)
