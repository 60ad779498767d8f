// Package metrics provides observability for the candidacy module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks lifecycle event throughput and contention on the ledger.
type Metrics struct {
	EventsApplied   *prometheus.CounterVec
	EventsRejected  *prometheus.CounterVec
	MergeConflicts  prometheus.Counter
	ScoringDuration prometheus.Histogram
}

// New creates a new Metrics instance with all candidacy module metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talentgate_lifecycle_events_applied_total",
			Help: "Total lifecycle events committed to a ledger, by event type",
		}, []string{"event"}),
		EventsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talentgate_lifecycle_events_rejected_total",
			Help: "Total lifecycle events rejected by the engine, by rejection code",
		}, []string{"code"}),
		MergeConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talentgate_ledger_merge_conflicts_total",
			Help: "Total ledger merges that exhausted optimistic-concurrency retries",
		}),
		ScoringDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "talentgate_scoring_call_duration_seconds",
			Help:    "Duration of external AI scoring calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// ObserveApplied records a committed lifecycle event.
func (m *Metrics) ObserveApplied(event string) {
	m.EventsApplied.WithLabelValues(event).Inc()
}

// ObserveRejected records an engine rejection by code.
func (m *Metrics) ObserveRejected(code string) {
	m.EventsRejected.WithLabelValues(code).Inc()
}

// ObserveScoring records the duration of a scoring call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveScoring(start time.Time) {
	m.ScoringDuration.Observe(time.Since(start).Seconds())
}
