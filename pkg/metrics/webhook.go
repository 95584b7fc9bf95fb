package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics tracks inbound gateway webhook processing.
type WebhookMetrics struct {
	received   *prometheus.CounterVec
	applied    *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewWebhookMetrics registers webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_received_total",
		Help: "Inbound webhook deliveries by gateway.",
	}, []string{"gateway"})
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_applied_total",
		Help: "Webhook deliveries that changed a royalty status.",
	}, []string{"gateway", "status"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_duplicate_total",
		Help: "Webhook deliveries short-circuited by the idempotency check.",
	}, []string{"gateway"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_rejected_total",
		Help: "Webhook deliveries rejected before reconciliation.",
	}, []string{"gateway", "reason"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_duration_seconds",
		Help:    "End-to-end webhook handling duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway"})
	reg.MustRegister(received, applied, duplicates, rejected, duration)
	return &WebhookMetrics{
		received:   received,
		applied:    applied,
		duplicates: duplicates,
		rejected:   rejected,
		duration:   duration,
	}
}

// IncReceived counts one inbound delivery.
func (m *WebhookMetrics) IncReceived(gateway string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(gateway)).Inc()
}

// IncApplied counts one delivery that resulted in a status change.
func (m *WebhookMetrics) IncApplied(gateway, status string) {
	if m == nil || m.applied == nil {
		return
	}
	m.applied.WithLabelValues(normalizeLabel(gateway), normalizeLabel(status)).Inc()
}

// IncDuplicate counts one replayed delivery.
func (m *WebhookMetrics) IncDuplicate(gateway string) {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.WithLabelValues(normalizeLabel(gateway)).Inc()
}

// IncRejected counts one delivery rejected before reaching the engine.
func (m *WebhookMetrics) IncRejected(gateway, reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(gateway), normalizeLabel(reason)).Inc()
}

// ObserveDuration records end-to-end handling time.
func (m *WebhookMetrics) ObserveDuration(gateway string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(gateway)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
