package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics records verification replay runs.
type ReconcileMetrics struct {
	duration *prometheus.HistogramVec
	entries  *prometheus.CounterVec
}

// Reconciliation entry outcomes.
const (
	ReconcileReplayed = "replayed"
	ReconcileRetry    = "retry"
	ReconcileParked   = "parked"
)

// NewReconcileMetrics registers the reconciliation metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_run_duration_seconds",
		Help:    "Duration of reconciliation sweeps in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"store"})
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_entries_total",
		Help: "Journal entries processed by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, entries)
	return &ReconcileMetrics{duration: duration, entries: entries}
}

// ObserveRun records the duration of one sweep.
func (m *ReconcileMetrics) ObserveRun(store string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(store)).Observe(duration.Seconds())
}

// IncEntry increments the entry counter for the given outcome.
func (m *ReconcileMetrics) IncEntry(outcome string) {
	if m == nil || m.entries == nil {
		return
	}
	m.entries.WithLabelValues(normalizeLabel(outcome)).Inc()
}
