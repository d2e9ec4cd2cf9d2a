package enums

import "fmt"

// NotificationType categorises in-app notification records.
type NotificationType string

const (
	NotificationTypeNewOrder        NotificationType = "new_order"
	NotificationTypeOrderUpdate     NotificationType = "order_update"
	NotificationTypeDeliveryRequest NotificationType = "delivery_request"
	NotificationTypeDeliveryOTP     NotificationType = "delivery_otp"
	NotificationTypeRefundUpdate    NotificationType = "refund_update"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeNewOrder,
	NotificationTypeOrderUpdate,
	NotificationTypeDeliveryRequest,
	NotificationTypeDeliveryOTP,
	NotificationTypeRefundUpdate,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
