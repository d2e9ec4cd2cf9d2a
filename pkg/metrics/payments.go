package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records gateway order creation and callback verification.
type PaymentMetrics struct {
	gatewayOrders prometheus.Counter
	verifications *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	gatewayOrders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_gateway_orders_total",
		Help: "Gateway orders created for checkout sessions.",
	})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Payment callback verifications, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(gatewayOrders, verifications)
	return &PaymentMetrics{gatewayOrders: gatewayOrders, verifications: verifications}
}

// IncGatewayOrder increments the gateway order counter.
func (m *PaymentMetrics) IncGatewayOrder() {
	if m == nil || m.gatewayOrders == nil {
		return
	}
	m.gatewayOrders.Inc()
}

// IncVerification increments the verification counter for the outcome.
func (m *PaymentMetrics) IncVerification(outcome string) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}
