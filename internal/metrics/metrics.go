// Package metrics holds the workflow-level Prometheus collectors.
// HTTP metrics live with the transport.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Applied state transitions, by event and resulting state.
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_transitions_total",
			Help: "Feedback request state transitions applied",
		},
		[]string{"event", "to"},
	)

	// Business rejections returned to callers, by code.
	Rejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_rejections_total",
			Help: "Operations rejected by workflow rules",
		},
		[]string{"code"},
	)

	// Outbox delivery attempts, by category and outcome.
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Notification delivery attempts",
		},
		[]string{"category", "status"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nomination_sweep_duration_seconds",
			Help:    "Duration of nomination deadline sweeps",
			Buckets: prometheus.DefBuckets,
		},
	)
)
