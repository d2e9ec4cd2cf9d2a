package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
)

// Delivery is the at-most-one assignment record for an order group. PartnerID
// is nil until a delivery partner wins the claim; the OTP columns hold the
// current hand-off challenge and are cleared on successful verification.
type Delivery struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderGroupID uuid.UUID            `gorm:"column:order_group_id;type:uuid;not null;uniqueIndex"`
	PartnerID    *uuid.UUID           `gorm:"column:partner_id;type:uuid;index"`
	Status       enums.DeliveryStatus `gorm:"column:status;type:delivery_status;not null;default:'pending'"`

	PickupAddress *string  `gorm:"column:pickup_address;type:text"`
	Distance      *float64 `gorm:"column:distance;type:numeric(8,2)"`
	EstimatedTime *string  `gorm:"column:estimated_time;type:text"`

	OTPCode     *string    `gorm:"column:otp_code;type:text"`
	OTPIssuedAt *time.Time `gorm:"column:otp_issued_at"`

	AssignedAt  *time.Time `gorm:"column:assigned_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the plural consistent with the migrations.
func (Delivery) TableName() string { return "deliveries" }

func (d *Delivery) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
