package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DeliveryMetrics records delivery claim and OTP verification activity.
type DeliveryMetrics struct {
	claims     *prometheus.CounterVec
	otpIssued  prometheus.Counter
	otpVerify  *prometheus.CounterVec
	otpReissue prometheus.Counter
}

// NewDeliveryMetrics registers the delivery metrics on the provided registerer.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_claims_total",
		Help: "Delivery claim attempts, by outcome.",
	}, []string{"outcome"})
	otpIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "delivery_otp_issued_total",
		Help: "Fresh OTP codes issued for hand-off.",
	})
	otpVerify := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_otp_verifications_total",
		Help: "OTP verification attempts, by outcome.",
	}, []string{"outcome"})
	otpReissue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "delivery_otp_reissued_total",
		Help: "OTP requests answered with a still-live code.",
	})
	reg.MustRegister(claims, otpIssued, otpVerify, otpReissue)
	return &DeliveryMetrics{
		claims:     claims,
		otpIssued:  otpIssued,
		otpVerify:  otpVerify,
		otpReissue: otpReissue,
	}
}

// IncClaim increments the claim counter ("won" or "lost").
func (m *DeliveryMetrics) IncClaim(outcome string) {
	if m == nil || m.claims == nil {
		return
	}
	m.claims.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncOTPIssued increments the fresh-OTP counter.
func (m *DeliveryMetrics) IncOTPIssued() {
	if m == nil || m.otpIssued == nil {
		return
	}
	m.otpIssued.Inc()
}

// IncOTPReissued increments the idempotent-reissue counter.
func (m *DeliveryMetrics) IncOTPReissued() {
	if m == nil || m.otpReissue == nil {
		return
	}
	m.otpReissue.Inc()
}

// IncOTPVerify increments the verify counter ("ok", "expired", "mismatch", "missing").
func (m *DeliveryMetrics) IncOTPVerify(outcome string) {
	if m == nil || m.otpVerify == nil {
		return
	}
	m.otpVerify.WithLabelValues(normalizeLabel(outcome)).Inc()
}
