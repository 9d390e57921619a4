// Package metrics holds the Prometheus instruments the batch processor
// moves: restriction gauges, per-outcome counters, and the time-to-resolve
// histogram for cleared suspensions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for the processed-events counter.
const (
	OutcomeApplied    = "applied"
	OutcomeIgnored    = "ignored"
	OutcomeValidation = "validation_failed"
	OutcomeRetried    = "retried"
)

type Metrics struct {
	AccountsBlocked   prometheus.Gauge
	AccountsSuspended prometheus.Gauge
	EventsProcessed   *prometheus.CounterVec
	InvalidBatches    prometheus.Counter
	TimeToResolve     prometheus.Histogram
}

// New registers all processor metrics on reg; a nil reg uses the default
// registerer. Tests pass a fresh registry so repeated construction does not
// panic on duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		AccountsBlocked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_accounts_blocked",
			Help: "Accounts currently in the blocked state",
		}),
		AccountsSuspended: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_accounts_suspended",
			Help: "Accounts currently carrying the suspended flag",
		}),
		EventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_events_processed_total",
			Help: "Ingress events by processing outcome",
		}, []string{"outcome"}),
		InvalidBatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "vigil_invalid_batches_total",
			Help: "Batch invocations that arrived empty",
		}),
		TimeToResolve: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vigil_suspension_time_to_resolve_seconds",
			Help:    "Time from applying a suspension to clearing it",
			Buckets: prometheus.ExponentialBuckets(60, 4, 10),
		}),
	}
}

// RecordStateChange moves the restriction gauges for one applied transition
// and observes time-to-resolve when the suspension flag clears.
func (m *Metrics) RecordStateChange(beforeBlocked, beforeSuspended, afterBlocked, afterSuspended bool, resolveSeconds float64) {
	switch {
	case !beforeBlocked && afterBlocked:
		m.AccountsBlocked.Inc()
	case beforeBlocked && !afterBlocked:
		m.AccountsBlocked.Dec()
	}
	switch {
	case !beforeSuspended && afterSuspended:
		m.AccountsSuspended.Inc()
	case beforeSuspended && !afterSuspended:
		m.AccountsSuspended.Dec()
		if resolveSeconds > 0 {
			m.TimeToResolve.Observe(resolveSeconds)
		}
	}
}
