package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records order lifecycle activity.
type OrderMetrics struct {
	placed    *prometheus.CounterVec
	decisions *prometheus.CounterVec
	cancelled prometheus.Counter
	delivered prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Order groups created at checkout, by payment method.",
	}, []string{"payment_method"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_decisions_total",
		Help: "Pharmacy accept/reject decisions.",
	}, []string{"decision"})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Customer cancellations before dispatch.",
	})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_delivered_total",
		Help: "Orders completed via OTP hand-off.",
	})
	reg.MustRegister(placed, decisions, cancelled, delivered)
	return &OrderMetrics{
		placed:    placed,
		decisions: decisions,
		cancelled: cancelled,
		delivered: delivered,
	}
}

// IncPlaced increments the placed counter for the payment method.
func (m *OrderMetrics) IncPlaced(paymentMethod string) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncDecision increments the decision counter ("accepted" or "rejected").
func (m *OrderMetrics) IncDecision(decision string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(decision)).Inc()
}

// IncCancelled increments the cancellation counter.
func (m *OrderMetrics) IncCancelled() {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.Inc()
}

// IncDelivered increments the delivered counter.
func (m *OrderMetrics) IncDelivered() {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.Inc()
}
