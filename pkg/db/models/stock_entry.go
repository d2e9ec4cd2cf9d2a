package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
)

// StockEntry is the single source of truth for a medicine's on-hand quantity.
// Status is derived from Quantity and LowStockThreshold by the stock engine;
// nothing else writes it.
type StockEntry struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	MedicineID        uuid.UUID         `gorm:"column:medicine_id;type:uuid;not null;uniqueIndex"`
	Quantity          int               `gorm:"column:quantity;not null;default:0"`
	LowStockThreshold int               `gorm:"column:low_stock_threshold;not null;default:20"`
	Status            enums.StockStatus `gorm:"column:status;type:stock_status;not null;default:'out_of_stock'"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the plural consistent with the migrations.
func (StockEntry) TableName() string { return "stock_entries" }

func (s *StockEntry) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
