// Package metrics provides Prometheus metrics for the taskboard client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "taskboard"
)

// Remote store metrics
var (
	// RemoteRequestsTotal counts remote store requests by table, operation, and outcome.
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "requests_total",
			Help:      "Total number of remote store requests",
		},
		[]string{"table", "operation", "outcome"},
	)

	// RemoteRequestDuration tracks remote store request latency.
	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "request_duration_seconds",
			Help:      "Remote store request latency in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)
)

// Auth metrics
var (
	// AuthAttemptsTotal counts sign-in attempts.
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Total sign-in attempts",
		},
		[]string{"result"}, // success, failure
	)

	// SessionsActive tracks whether a session is currently established.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sessions_active",
			Help:      "Number of active sessions held by this client",
		},
	)
)

// Workflow metrics
var (
	// InvitesTotal counts invitation attempts by outcome.
	InvitesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invites",
			Name:      "total",
			Help:      "Total invitation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// TaskMovesTotal counts confirmed task status changes.
	TaskMovesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "moves_total",
			Help:      "Total confirmed task status changes",
		},
	)
)
