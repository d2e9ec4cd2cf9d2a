package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a stock repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByMedicineID(ctx context.Context, medicineID uuid.UUID) (*models.StockEntry, error) {
	var entry models.StockEntry
	err := r.db.WithContext(ctx).
		Where("medicine_id = ?", medicineID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByMedicineIDs(ctx context.Context, medicineIDs []uuid.UUID) ([]models.StockEntry, error) {
	if len(medicineIDs) == 0 {
		return nil, nil
	}
	var entries []models.StockEntry
	err := r.db.WithContext(ctx).
		Where("medicine_id IN ?", medicineIDs).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DecrementGuarded subtracts qty only when enough stock remains. The boolean
// reports whether the row was updated; false means the guard rejected it.
func (r *repository) DecrementGuarded(ctx context.Context, medicineID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE stock_entries
		SET quantity = quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE medicine_id = ? AND quantity >= ?
	`, qty, medicineID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Increment(ctx context.Context, medicineID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE stock_entries
		SET quantity = quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE medicine_id = ?
	`, qty, medicineID).Error
}

func (r *repository) UpdateStatus(ctx context.Context, medicineID uuid.UUID, status enums.StockStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.StockEntry{}).
		Where("medicine_id = ?", medicineID).
		Update("status", status).Error
}

func (r *repository) Upsert(ctx context.Context, entry *models.StockEntry) (*models.StockEntry, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "medicine_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "low_stock_threshold", "status", "updated_at"}),
		}).
		Create(entry).Error
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, onlyStatus *enums.StockStatus) ([]PharmacyStockRow, error) {
	query := r.db.WithContext(ctx).
		Table("stock_entries").
		Select("stock_entries.medicine_id, medicines.name AS medicine_name, stock_entries.quantity, stock_entries.low_stock_threshold, stock_entries.status").
		Joins("JOIN medicines ON medicines.id = stock_entries.medicine_id").
		Where("medicines.pharmacy_id = ?", pharmacyID).
		Order("medicines.name ASC")
	if onlyStatus != nil {
		query = query.Where("stock_entries.status = ?", *onlyStatus)
	}

	var rows []PharmacyStockRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
