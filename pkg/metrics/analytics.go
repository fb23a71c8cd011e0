package metrics

import "github.com/prometheus/client_golang/prometheus"

// Analytics message verdicts.
const (
	VerdictRecorded  = "recorded"
	VerdictDuplicate = "duplicate"
	VerdictDropped   = "dropped"
	VerdictRetried   = "retried"
)

// AnalyticsMetrics counts analytics messages by event type and verdict.
type AnalyticsMetrics struct {
	messages *prometheus.CounterVec
}

func NewAnalyticsMetrics(reg prometheus.Registerer) *AnalyticsMetrics {
	if reg == nil {
		return &AnalyticsMetrics{}
	}
	m := &AnalyticsMetrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Name:      "messages_total",
			Help:      "Analytics messages handled, by event type and verdict.",
		}, []string{"event_type", "verdict"}),
	}
	reg.MustRegister(m.messages)
	return m
}

func (m *AnalyticsMetrics) Count(eventType, verdict string) {
	if m == nil || m.messages == nil {
		return
	}
	m.messages.WithLabelValues(normalizeLabel(eventType), verdict).Inc()
}
