// Package metrics defines the Prometheus collectors shared by the hand-off
// slot and the job executor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "implgrid"

// Metrics holds every collector. A nil *Metrics is valid and records nothing,
// so components can run without instrumentation in tests.
type Metrics struct {
	handoffs     *prometheus.CounterVec
	jobs         *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	pending      prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		handoffs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoff_total",
			Help:      "Registry hand-offs by outcome (registered, buffered, failed).",
		}, []string{"outcome"}),
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Matrix jobs executed by final status.",
		}, []string{"status"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of individual job steps in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_registries",
			Help:      "Registries currently buffered awaiting pickup.",
		}),
	}
}

// Handoff counts one hand-off outcome.
func (m *Metrics) Handoff(outcome string) {
	if m == nil {
		return
	}
	m.handoffs.WithLabelValues(outcome).Inc()
	if outcome == "buffered" {
		m.pending.Inc()
	}
}

// Job counts one finished job.
func (m *Metrics) Job(status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(status).Inc()
}

// Step observes the duration of one step in seconds.
func (m *Metrics) Step(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(phase).Observe(seconds)
}

// HandoffCount returns the counter for outcome.
func (m *Metrics) HandoffCount(outcome string) prometheus.Counter {
	return m.handoffs.WithLabelValues(outcome)
}

// JobCount returns the counter for status.
func (m *Metrics) JobCount(status string) prometheus.Counter {
	return m.jobs.WithLabelValues(status)
}

// Pending returns the pending-registries gauge.
func (m *Metrics) Pending() prometheus.Gauge {
	return m.pending
}
