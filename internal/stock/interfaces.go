package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
)

// Repository defines persistence operations for the stock ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByMedicineID(ctx context.Context, medicineID uuid.UUID) (*models.StockEntry, error)
	FindByMedicineIDs(ctx context.Context, medicineIDs []uuid.UUID) ([]models.StockEntry, error)
	DecrementGuarded(ctx context.Context, medicineID uuid.UUID, qty int) (bool, error)
	Increment(ctx context.Context, medicineID uuid.UUID, qty int) error
	UpdateStatus(ctx context.Context, medicineID uuid.UUID, status enums.StockStatus) error
	Upsert(ctx context.Context, entry *models.StockEntry) (*models.StockEntry, error)
	ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, onlyStatus *enums.StockStatus) ([]PharmacyStockRow, error)
}

// PharmacyStockRow joins a stock entry with its medicine for pharmacy listings.
type PharmacyStockRow struct {
	MedicineID        uuid.UUID         `json:"medicine_id"`
	MedicineName      string            `json:"medicine_name"`
	Quantity          int               `json:"quantity"`
	LowStockThreshold int               `json:"low_stock_threshold"`
	Status            enums.StockStatus `json:"status"`
}
