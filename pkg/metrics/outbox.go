package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics records outbox publisher batches and per-event outcomes.
type OutboxMetrics struct {
	batchDuration *prometheus.HistogramVec
	outcomes      *prometheus.CounterVec
}

// NewOutboxMetrics registers the publisher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox events by event type and publish outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(batchDuration, outcomes)
	return &OutboxMetrics{
		batchDuration: batchDuration,
		outcomes:      outcomes,
	}
}

// ObserveBatch records how long a batch took; failed is true when the batch transaction errored.
func (m *OutboxMetrics) ObserveBatch(duration time.Duration, failed bool) {
	if m == nil || m.batchDuration == nil {
		return
	}
	result := "ok"
	if failed {
		result = "error"
	}
	m.batchDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	m.inc(eventType, "published")
}

func (m *OutboxMetrics) IncRetried(eventType string) {
	m.inc(eventType, "retried")
}

func (m *OutboxMetrics) IncDeadLettered(eventType string) {
	m.inc(eventType, "dead_lettered")
}

func (m *OutboxMetrics) inc(eventType, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
