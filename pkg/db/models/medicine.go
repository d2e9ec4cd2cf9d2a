package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"github.com/shopspring/decimal"
)

// Medicine is a sellable catalog item owned by a pharmacy.
type Medicine struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PharmacyID           uuid.UUID       `gorm:"column:pharmacy_id;type:uuid;not null;index"`
	Name                 string          `gorm:"column:name;type:text;not null"`
	Description          *string         `gorm:"column:description;type:text"`
	Price                decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	RequiresPrescription bool            `gorm:"column:requires_prescription;not null;default:false"`
	Stock                *StockEntry     `gorm:"foreignKey:MedicineID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *Medicine) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
