package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrderGroup   OutboxAggregateType = "order_group"
	AggregateDelivery     OutboxAggregateType = "delivery"
	AggregatePayment      OutboxAggregateType = "payment"
	AggregateRefund       OutboxAggregateType = "refund"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrderGroup,
	AggregateDelivery,
	AggregatePayment,
	AggregateRefund,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPlaced           OutboxEventType = "order_placed"
	EventOrderAccepted         OutboxEventType = "order_accepted"
	EventOrderRejected         OutboxEventType = "order_rejected"
	EventOrderCancelled        OutboxEventType = "order_cancelled"
	EventOrderDelivered        OutboxEventType = "order_delivered"
	EventPaymentCaptured       OutboxEventType = "payment_captured"
	EventPaymentFailed         OutboxEventType = "payment_failed"
	EventDeliveryRequested     OutboxEventType = "delivery_requested"
	EventDeliveryClaimed       OutboxEventType = "delivery_claimed"
	EventDeliveryReleased      OutboxEventType = "delivery_released"
	EventDeliveryOTPIssued     OutboxEventType = "delivery_otp_issued"
	EventRefundInitiated       OutboxEventType = "refund_initiated"
	EventRefundProcessing      OutboxEventType = "refund_processing"
	EventRefundPending         OutboxEventType = "refund_pending"
	EventRefundCompleted       OutboxEventType = "refund_completed"
	EventRefundFailed          OutboxEventType = "refund_failed"
	EventNotificationRequested OutboxEventType = "notification_requested"
	EventCheckoutConverted     OutboxEventType = "checkout_converted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderAccepted,
	EventOrderRejected,
	EventOrderCancelled,
	EventOrderDelivered,
	EventPaymentCaptured,
	EventPaymentFailed,
	EventDeliveryRequested,
	EventDeliveryClaimed,
	EventDeliveryReleased,
	EventDeliveryOTPIssued,
	EventRefundInitiated,
	EventRefundProcessing,
	EventRefundPending,
	EventRefundCompleted,
	EventRefundFailed,
	EventNotificationRequested,
	EventCheckoutConverted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
