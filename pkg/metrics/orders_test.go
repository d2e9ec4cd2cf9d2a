package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOrderMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetrics(reg)

	metrics.IncPlaced("razorpay")
	metrics.IncPlaced("razorpay")
	metrics.IncDecision("accepted")
	metrics.IncCancelled()
	metrics.IncDelivered()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "orders_placed_total", "payment_method", "razorpay"); err != nil {
		t.Fatalf("fetch placed: %v", err)
	} else if got != 2 {
		t.Fatalf("expected placed=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "order_decisions_total", "decision", "accepted"); err != nil {
		t.Fatalf("fetch decisions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected decisions=1, got %f", got)
	}
}

func TestDeliveryMetricsNilSafe(t *testing.T) {
	// A nil registerer yields inert metrics so workers can run without one.
	metrics := NewDeliveryMetrics(nil)
	metrics.IncClaim("won")
	metrics.IncOTPIssued()
	metrics.IncOTPReissued()
	metrics.IncOTPVerify("expired")

	var refunds *RefundMetrics
	refunds.IncTransition("completed")
}

func TestDeliveryMetricsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewDeliveryMetrics(reg)

	metrics.IncClaim("won")
	metrics.IncClaim("lost")
	metrics.IncOTPVerify("ok")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "delivery_claims_total", "outcome", "lost"); err != nil {
		t.Fatalf("fetch claims: %v", err)
	} else if got != 1 {
		t.Fatalf("expected lost=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "delivery_otp_verifications_total", "outcome", "ok"); err != nil {
		t.Fatalf("fetch verifications: %v", err)
	} else if got != 1 {
		t.Fatalf("expected ok=1, got %f", got)
	}
}
