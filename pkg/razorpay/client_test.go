package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	rzperrors "github.com/razorpay/razorpay-go/errors"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
)

func TestVerifyPaymentSignature(t *testing.T) {
	c := &Client{keySecret: "test_secret"}

	orderID := "order_EKwxwAgItmmXdp"
	paymentID := "pay_29QQoUBi66xm2f"

	mac := hmac.New(sha256.New, []byte("test_secret"))
	mac.Write([]byte(orderID + "|" + paymentID))
	valid := hex.EncodeToString(mac.Sum(nil))

	if !c.VerifyPaymentSignature(orderID, paymentID, valid) {
		t.Fatal("expected valid signature to verify")
	}
	if c.VerifyPaymentSignature(orderID, paymentID, "deadbeef") {
		t.Fatal("expected forged signature to fail")
	}
	if c.VerifyPaymentSignature("", paymentID, valid) {
		t.Fatal("expected empty order id to fail")
	}
	if c.VerifyPaymentSignature(orderID, paymentID, "") {
		t.Fatal("expected empty signature to fail")
	}
}

func TestPaiseConversion(t *testing.T) {
	tests := []struct {
		rupees string
		paise  int64
	}{
		{"70.00", 7000},
		{"0.50", 50},
		{"199.99", 19999},
		{"0", 0},
	}
	for _, tt := range tests {
		amount, err := decimal.NewFromString(tt.rupees)
		if err != nil {
			t.Fatalf("bad fixture %q: %v", tt.rupees, err)
		}
		if got := ToPaise(amount); got != tt.paise {
			t.Fatalf("ToPaise(%s) = %d, want %d", tt.rupees, got, tt.paise)
		}
		if got := FromPaise(tt.paise); !got.Equal(amount) {
			t.Fatalf("FromPaise(%d) = %s, want %s", tt.paise, got, amount)
		}
	}
}

func TestRedact(t *testing.T) {
	c := &Client{}
	if out := c.redact("gateway_signature", "abc123"); out != "[REDACTED]" {
		t.Fatalf("expected redacted value, got %v", out)
	}
	// Non-sensitive keys should be preserved.
	if v := c.redact("status", "captured"); v != "captured" {
		t.Fatalf("unexpected redaction for safe key")
	}
}

func TestMapRazorpayError(t *testing.T) {
	c := &Client{}

	badReq := &rzperrors.BadRequestError{Message: "amount must be at least 100"}
	domainErr := pkgerrors.As(c.mapRazorpayError(badReq, "create order"))
	if domainErr == nil {
		t.Fatal("expected domain error for bad request")
	}
	if domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %s", domainErr.Code())
	}

	srvErr := &rzperrors.ServerError{Message: "internal"}
	domainErr = pkgerrors.As(c.mapRazorpayError(srvErr, "create refund"))
	if domainErr == nil {
		t.Fatal("expected domain error for server error")
	}
	if domainErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %s", domainErr.Code())
	}
}

func TestStringAndIntFields(t *testing.T) {
	resp := map[string]any{
		"id":     "order_123",
		"amount": float64(7000),
	}
	if got := stringField(resp, "id"); got != "order_123" {
		t.Fatalf("stringField returned %q", got)
	}
	if got := intField(resp, "amount"); got != 7000 {
		t.Fatalf("intField returned %d", got)
	}
	if got := stringField(resp, "missing"); got != "" {
		t.Fatalf("expected empty string for missing key, got %q", got)
	}
	if got := intField(resp, "missing"); got != 0 {
		t.Fatalf("expected zero for missing key, got %d", got)
	}
}
