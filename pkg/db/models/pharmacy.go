package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Pharmacy is a seller storefront operated by a pharmacy-role user.
type Pharmacy struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerUserID   uuid.UUID `gorm:"column:owner_user_id;type:uuid;not null;uniqueIndex"`
	Name          string    `gorm:"column:name;type:text;not null"`
	LicenseNumber string    `gorm:"column:license_number;type:text;not null"`
	Address       string    `gorm:"column:address;type:text;not null"`
	Phone         *string   `gorm:"column:phone;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the plural consistent with the migrations.
func (Pharmacy) TableName() string { return "pharmacies" }

func (ph *Pharmacy) BeforeCreate(*gorm.DB) error {
	if ph.ID == uuid.Nil {
		ph.ID = uuid.New()
	}
	return nil
}
