package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts processed events. A nil *Metrics discards everything.
type Metrics struct {
	events   *prometheus.CounterVec
	bytes    prometheus.Counter
	retries  prometheus.Counter
	duration prometheus.Histogram
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leo_ring_events_total",
			Help: "Doorbell events processed, by outcome.",
		}, []string{"status"}),

		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leo_ring_upload_bytes_total",
			Help: "Recording bytes uploaded to storage.",
		}),

		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leo_ring_retries_total",
			Help: "Event saves retried after a transient timeout.",
		}),

		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "leo_ring_run_duration_seconds",
			Help:    "Duration of a complete archive run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	if registry != nil {
		registry.MustRegister(m.events, m.bytes, m.retries, m.duration)
	}

	return &m
}

func (m *Metrics) event(status string) {
	if m != nil {
		m.events.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) uploaded(N int64) {
	if m != nil && N > 0 {
		m.bytes.Add(float64(N))
	}
}

func (m *Metrics) retried() {
	if m != nil {
		m.retries.Inc()
	}
}

func (m *Metrics) run(d time.Duration) {
	if m != nil {
		m.duration.Observe(d.Seconds())
	}
}
