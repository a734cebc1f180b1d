package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_transitions_applied_total",
			Help: "Total number of lifecycle transitions applied",
		},
		[]string{"action"},
	)

	TransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_transitions_rejected_total",
			Help: "Total number of lifecycle transitions rejected",
		},
		[]string{"action", "error_code"},
	)

	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "placement_transition_duration_seconds",
			Help: "Duration of a service call including persistence",
		},
		[]string{"action"},
	)

	NotificationsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_notifications_persisted_total",
			Help: "Total number of notification rows persisted",
		},
		[]string{"kind"},
	)

	NotificationsDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_notifications_deduplicated_total",
			Help: "Total number of notification intents dropped by the idempotency key",
		},
		[]string{"kind"},
	)

	PushAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_push_attempts_total",
			Help: "Total number of real-time push attempts per channel class",
		},
		[]string{"channel"},
	)

	PushFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_push_failures_total",
			Help: "Total number of failed real-time push attempts",
		},
		[]string{"channel"},
	)

	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "placement_dispatch_queue_depth",
			Help: "Number of intents waiting in the dispatch queue",
		},
	)
)
