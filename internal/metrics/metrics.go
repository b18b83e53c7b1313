// Package metrics records store operation outcomes with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeStale = "stale"
)

// Recorder counts operation outcomes and durations. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewRecorder creates a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spendsync",
			Name:      "operations_total",
			Help:      "Store operations by outcome. Stale results were discarded by the ordering policy.",
		}, []string{"store", "operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spendsync",
			Name:      "operation_duration_seconds",
			Help:      "Wall time from dispatch to settlement of store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe records one settled operation that started at start.
func (r *Recorder) Observe(store, operation, outcome string, start time.Time) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(store, operation, outcome).Inc()
	r.duration.WithLabelValues(store, operation).Observe(time.Since(start).Seconds())
}

// Operations exposes the outcome counter, for tests.
func (r *Recorder) Operations() *prometheus.CounterVec {
	return r.operations
}
