package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RefundMetrics records refund sub-state transitions.
type RefundMetrics struct {
	transitions *prometheus.CounterVec
}

// NewRefundMetrics registers the refund metrics on the provided registerer.
func NewRefundMetrics(reg prometheus.Registerer) *RefundMetrics {
	if reg == nil {
		return &RefundMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_transitions_total",
		Help: "Refund state transitions, by resulting status.",
	}, []string{"status"})
	reg.MustRegister(transitions)
	return &RefundMetrics{transitions: transitions}
}

// IncTransition increments the transition counter for the resulting status.
func (m *RefundMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}
