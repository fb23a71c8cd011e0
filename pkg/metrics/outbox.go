package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts relay deliveries by topic and outcome and tracks the
// unpublished backlog.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
	backlog    prometheus.Gauge
}

// NewOutboxMetrics registers the outbox delivery counter on reg.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_deliveries_total",
		Help: "Outbox rows handled by the relay, by topic and outcome.",
	}, []string{"topic", "outcome"})
	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_pending_rows",
		Help: "Unpublished outbox rows still within the retry budget.",
	})
	reg.MustRegister(deliveries, backlog)
	return &OutboxMetrics{deliveries: deliveries, backlog: backlog}
}

// SetBacklog records the latest pending row count.
func (m *OutboxMetrics) SetBacklog(n int64) {
	if m == nil || m.backlog == nil {
		return
	}
	m.backlog.Set(float64(n))
}

// IncDelivery increments the counter for topic and outcome.
func (m *OutboxMetrics) IncDelivery(topic, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(topic), normalizeLabel(outcome)).Inc()
}
