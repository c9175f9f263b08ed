package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	txTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tx_transitions_total",
			Help: "Transaction lifecycle transitions per action and phase",
		},
		[]string{"action", "phase"},
	)

	txFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tx_failures_total",
			Help: "Failed transactions per action and error kind",
		},
		[]string{"action", "kind"},
	)

	integrityWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_integrity_warnings_total",
			Help: "Tickets whose sold count exceeds max supply",
		},
	)

	degradedLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "degraded_lookups_total",
			Help: "Per-ticket chain lookups that fell back to a default value",
		},
		[]string{"lookup"},
	)

	settleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tx_settle_duration_seconds",
			Help:    "Time from submit to a terminal phase",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"action", "phase"},
	)
)

func TrackTransition(action, phase string) {
	txTransitions.WithLabelValues(action, phase).Inc()
}

func TrackFailure(action, kind string) {
	txFailures.WithLabelValues(action, kind).Inc()
}

func TrackIntegrityWarning() {
	integrityWarnings.Inc()
}

func TrackDegradedLookup(lookup string) {
	degradedLookups.WithLabelValues(lookup).Inc()
}

func ObserveSettle(action, phase string, seconds float64) {
	settleDuration.WithLabelValues(action, phase).Observe(seconds)
}
