package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
)

// OrderPlacedEvent signals a new checkout split across pharmacies.
type OrderPlacedEvent struct {
	OrderGroupID uuid.UUID `json:"order_group_id"`
	OrderRef     string    `json:"order_ref"`
	CustomerID   uuid.UUID `json:"customer_id"`
	PharmacyID   uuid.UUID `json:"pharmacy_id"`
	ItemCount    int       `json:"item_count"`
}

// OrderDecisionEvent is emitted when a pharmacy accepts or rejects a group.
type OrderDecisionEvent struct {
	OrderGroupID uuid.UUID         `json:"order_group_id"`
	OrderRef     string            `json:"order_ref"`
	CustomerID   uuid.UUID         `json:"customer_id"`
	PharmacyID   uuid.UUID         `json:"pharmacy_id"`
	Status       enums.OrderStatus `json:"status"`
}

// OrderCancelledEvent is emitted whenever a customer cancels a pre-dispatch order.
type OrderCancelledEvent struct {
	OrderGroupID uuid.UUID `json:"order_group_id"`
	OrderRef     string    `json:"order_ref"`
	CustomerID   uuid.UUID `json:"customer_id"`
	PharmacyID   uuid.UUID `json:"pharmacy_id"`
	CancelledAt  time.Time `json:"cancelled_at"`
	Reason       string    `json:"reason,omitempty"`
}

// OrderDeliveredEvent surfaces the completed hand-off. PartnerID is nil for
// pickup orders handed over at the counter.
type OrderDeliveredEvent struct {
	OrderGroupID uuid.UUID  `json:"order_group_id"`
	OrderRef     string     `json:"order_ref"`
	CustomerID   uuid.UUID  `json:"customer_id"`
	PartnerID    *uuid.UUID `json:"partner_id,omitempty"`
	DeliveredAt  time.Time  `json:"delivered_at"`
}

// PaymentStatusEvent reports a gateway capture or failure against a group.
type PaymentStatusEvent struct {
	OrderGroupID     uuid.UUID           `json:"order_group_id"`
	OrderRef         string              `json:"order_ref"`
	PaymentID        uuid.UUID           `json:"payment_id"`
	GatewayOrderID   string              `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string              `json:"gateway_payment_id,omitempty"`
	Status           enums.PaymentStatus `json:"status"`
	Amount           decimal.Decimal     `json:"amount"`
}

// DeliveryRequestedEvent asks delivery partners to claim an order.
type DeliveryRequestedEvent struct {
	DeliveryID   uuid.UUID `json:"delivery_id"`
	OrderGroupID uuid.UUID `json:"order_group_id"`
	OrderRef     string    `json:"order_ref"`
	PharmacyID    uuid.UUID `json:"pharmacy_id"`
	Address       string    `json:"address,omitempty"`
	PickupAddress string    `json:"pickup_address,omitempty"`
}

// DeliveryClaimedEvent records which partner won the claim.
type DeliveryClaimedEvent struct {
	DeliveryID   uuid.UUID `json:"delivery_id"`
	OrderGroupID uuid.UUID `json:"order_group_id"`
	OrderRef     string    `json:"order_ref"`
	PartnerID    uuid.UUID `json:"partner_id"`
	ClaimedAt    time.Time `json:"claimed_at"`
}

// DeliveryReleasedEvent re-opens an assignment for other partners.
type DeliveryReleasedEvent struct {
	DeliveryID   uuid.UUID `json:"delivery_id"`
	OrderGroupID uuid.UUID `json:"order_group_id"`
	OrderRef     string    `json:"order_ref"`
	PartnerID    uuid.UUID `json:"partner_id"`
	ReleasedAt   time.Time `json:"released_at"`
}

// DeliveryOTPIssuedEvent tells the customer channel an OTP is live.
type DeliveryOTPIssuedEvent struct {
	DeliveryID   uuid.UUID `json:"delivery_id"`
	OrderGroupID uuid.UUID `json:"order_group_id"`
	OrderRef     string    `json:"order_ref"`
	CustomerID   uuid.UUID `json:"customer_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RefundStatusEvent tracks the refund sub-state machine.
type RefundStatusEvent struct {
	OrderGroupID uuid.UUID          `json:"order_group_id"`
	OrderRef     string             `json:"order_ref"`
	CustomerID   uuid.UUID          `json:"customer_id"`
	Status       enums.RefundStatus `json:"status"`
	Amount       decimal.Decimal    `json:"amount"`
	GatewayID    string             `json:"gateway_id,omitempty"`
	Reason       string             `json:"reason,omitempty"`
}

// NotificationRequestedEvent tells downstream systems to alert an audience.
type NotificationRequestedEvent struct {
	OrderGroupID uuid.UUID              `json:"order_group_id"`
	OrderRef     string                 `json:"order_ref"`
	PharmacyID   *uuid.UUID             `json:"pharmacy_id,omitempty"`
	UserID       *uuid.UUID             `json:"user_id,omitempty"`
	Type         enums.NotificationType `json:"type"`
	Title        string                 `json:"title"`
	Message      string                 `json:"message"`
}

// CheckoutConvertedEvent reports a cart that became one or more order groups.
type CheckoutConvertedEvent struct {
	CartID        uuid.UUID   `json:"cart_id"`
	CustomerID    uuid.UUID   `json:"customer_id"`
	OrderGroupIDs []uuid.UUID `json:"order_group_ids"`
}
