package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"github.com/shopspring/decimal"

	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
)

// OrderGroup is the per-pharmacy order aggregate produced from a checkout.
// All line items in a group belong to the same pharmacy and move through the
// lifecycle together; there is no per-item state.
type OrderGroup struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderRef      string              `gorm:"column:order_ref;type:text;not null;uniqueIndex"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	PharmacyID    uuid.UUID           `gorm:"column:pharmacy_id;type:uuid;not null;index"`
	Status        enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending_pharmacy_confirmation'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'cod'"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`

	DeliveryRequired bool    `gorm:"column:delivery_required;not null;default:true"`
	DeliveryAddress  *string `gorm:"column:delivery_address;type:text"`

	RefundStatus      enums.RefundStatus `gorm:"column:refund_status;type:refund_status;not null;default:'no_refund'"`
	RefundAmount      *decimal.Decimal   `gorm:"column:refund_amount;type:numeric(12,2)"`
	RefundReason      *string            `gorm:"column:refund_reason;type:text"`
	RefundGatewayID   *string            `gorm:"column:refund_gateway_id;type:text"`
	RefundInitiatedAt *time.Time         `gorm:"column:refund_initiated_at"`

	AcceptedAt  *time.Time `gorm:"column:accepted_at"`
	RejectedAt  *time.Time `gorm:"column:rejected_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`

	Items    []OrderLineItem `gorm:"foreignKey:OrderGroupID;constraint:OnDelete:CASCADE"`
	Delivery *Delivery       `gorm:"foreignKey:OrderGroupID;constraint:OnDelete:CASCADE"`
	Payments []Payment       `gorm:"foreignKey:OrderGroupID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key client-side so inserts behave the
// same on Postgres and the sqlite test databases.
func (g *OrderGroup) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
