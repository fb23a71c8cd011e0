package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconciliationMetrics counts order-payment reconciliation outcomes.
type ReconciliationMetrics struct {
	total *prometheus.CounterVec
}

// NewReconciliationMetrics registers the reconciliation counter on reg.
func NewReconciliationMetrics(reg prometheus.Registerer) *ReconciliationMetrics {
	if reg == nil {
		return &ReconciliationMetrics{}
	}
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_total",
		Help: "Order-payment reconciliation attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(total)
	return &ReconciliationMetrics{total: total}
}

// IncOutcome increments the counter for outcome.
func (m *ReconciliationMetrics) IncOutcome(outcome string) {
	if m == nil || m.total == nil {
		return
	}
	m.total.WithLabelValues(normalizeLabel(outcome)).Inc()
}
