// Package metrics records backend operation counts and latencies with Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacentio/arbor/record"
)

// Result labels.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// Metrics holds the collectors shared by the storage backends. A nil
// *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg when reg is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Backend operations by backend, operation and result.",
		}, []string{"backend", "op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arbor",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Backend operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "op"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.duration)
	}
	return m
}

// Observe records one operation that started at start and ended with err.
func (m *Metrics) Observe(backend, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(backend, op, Result(err)).Inc()
	m.duration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

// Operations returns the counter for backend, op and result.
func (m *Metrics) Operations(backend, op, result string) prometheus.Counter {
	return m.operations.WithLabelValues(backend, op, result)
}

// Result classifies err into a result label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, record.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, record.ErrAlreadyExists), errors.Is(err, record.ErrConcurrentModification):
		return ResultConflict
	default:
		return ResultError
	}
}
