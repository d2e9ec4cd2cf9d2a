package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"github.com/shopspring/decimal"

	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
)

// Payment records a gateway payment attempt against an order group, one row
// per line item. Amount is stored in rupees; conversion to paise happens only
// at the gateway boundary.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderGroupID    uuid.UUID           `gorm:"column:order_group_id;type:uuid;not null;index"`
	OrderLineItemID *uuid.UUID          `gorm:"column:order_line_item_id;type:uuid"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency        string              `gorm:"column:currency;type:text;not null;default:'INR'"`
	Method          enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`

	GatewayOrderID   *string `gorm:"column:gateway_order_id;type:text;index"`
	GatewayPaymentID *string `gorm:"column:gateway_payment_id;type:text"`
	GatewaySignature *string `gorm:"column:gateway_signature;type:text"`

	PaidAt    *time.Time `gorm:"column:paid_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
