package enums

import "fmt"

// OrderStatus tracks an order group through the pharmacy fulfilment lifecycle.
type OrderStatus string

const (
	OrderStatusPendingPharmacyConfirmation OrderStatus = "pending_pharmacy_confirmation"
	OrderStatusPharmacyAccepted            OrderStatus = "pharmacy_accepted"
	OrderStatusPharmacyRejected            OrderStatus = "pharmacy_rejected"
	OrderStatusOutForDelivery              OrderStatus = "out_for_delivery"
	OrderStatusDelivered                   OrderStatus = "delivered"
	OrderStatusCancelled                   OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPharmacyConfirmation,
	OrderStatusPharmacyAccepted,
	OrderStatusPharmacyRejected,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further lifecycle transitions are allowed.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusPharmacyRejected, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
