package jobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records outcomes of scheduled jobs. A nil *Metrics is a no-op.
type Metrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billing_job_duration_seconds",
		Help:    "Duration of billing jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_job_success_total",
		Help: "Successful billing job runs.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_job_failure_total",
		Help: "Failed billing job runs.",
	}, []string{"job"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_job_skipped_total",
		Help: "Billing job runs skipped because another instance held the lock.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure, skipped)
	return &Metrics{
		duration: duration,
		success:  success,
		failure:  failure,
		skipped:  skipped,
	}
}

func (m *Metrics) ObserveDuration(job string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
}

func (m *Metrics) IncSuccess(job string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(job)).Inc()
}

func (m *Metrics) IncFailure(job string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

func (m *Metrics) IncSkipped(job string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(job)).Inc()
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
