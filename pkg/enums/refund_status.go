package enums

import "fmt"

// RefundStatus tracks the refund sub-state machine attached to an order group.
//
// The happy path is no_refund -> initiated -> processing -> completed. A gateway
// outage parks the refund at pending so an operator (or a retry worker) can pick
// it up without losing the customer's request.
type RefundStatus string

const (
	RefundStatusNone       RefundStatus = "no_refund"
	RefundStatusInitiated  RefundStatus = "initiated"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusFailed     RefundStatus = "failed"
	RefundStatusPending    RefundStatus = "pending"
)

var validRefundStatuses = []RefundStatus{
	RefundStatusNone,
	RefundStatusInitiated,
	RefundStatusProcessing,
	RefundStatusCompleted,
	RefundStatusFailed,
	RefundStatusPending,
}

// String implements fmt.Stringer.
func (r RefundStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundStatus.
func (r RefundStatus) IsValid() bool {
	for _, candidate := range validRefundStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundStatus converts raw input into a RefundStatus.
func ParseRefundStatus(value string) (RefundStatus, error) {
	for _, candidate := range validRefundStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund status %q", value)
}
