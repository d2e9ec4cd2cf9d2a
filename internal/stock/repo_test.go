package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Medicine{}, &models.StockEntry{}))
	return db
}

func seedMedicine(t *testing.T, db *gorm.DB, pharmacyID uuid.UUID, name string, qty, threshold int) *models.Medicine {
	t.Helper()

	medicine := &models.Medicine{
		ID:         uuid.New(),
		PharmacyID: pharmacyID,
		Name:       name,
		Price:      decimal.NewFromFloat(49.50),
	}
	require.NoError(t, db.Create(medicine).Error)

	entry := &models.StockEntry{
		ID:                uuid.New(),
		MedicineID:        medicine.ID,
		Quantity:          qty,
		LowStockThreshold: threshold,
		Status:            enums.StockStatusFor(qty, threshold),
	}
	require.NoError(t, db.Create(entry).Error)
	return medicine
}

func TestRepositoryDecrementGuarded(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, db, pharmacyID, "Paracetamol 500mg", 10, 20)

	updated, err := repo.DecrementGuarded(context.Background(), medicine.ID, 4)
	require.NoError(t, err)
	assert.True(t, updated)

	entry, err := repo.FindByMedicineID(context.Background(), medicine.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, entry.Quantity)

	// The guard refuses to take the quantity below zero.
	updated, err = repo.DecrementGuarded(context.Background(), medicine.ID, 7)
	require.NoError(t, err)
	assert.False(t, updated)

	entry, err = repo.FindByMedicineID(context.Background(), medicine.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, entry.Quantity)
}

func TestRepositoryIncrementAndStatus(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, db, pharmacyID, "Ibuprofen 400mg", 0, 20)

	require.NoError(t, repo.Increment(context.Background(), medicine.ID, 15))
	require.NoError(t, repo.UpdateStatus(context.Background(), medicine.ID, enums.StockStatusLowStock))

	entry, err := repo.FindByMedicineID(context.Background(), medicine.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, entry.Quantity)
	assert.Equal(t, enums.StockStatusLowStock, entry.Status)
}

func TestRepositoryUpsert(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, db, pharmacyID, "Cetirizine 10mg", 5, 20)

	_, err := repo.Upsert(context.Background(), &models.StockEntry{
		ID:                uuid.New(),
		MedicineID:        medicine.ID,
		Quantity:          80,
		LowStockThreshold: 10,
		Status:            enums.StockStatusInStock,
	})
	require.NoError(t, err)

	entry, err := repo.FindByMedicineID(context.Background(), medicine.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, entry.Quantity)
	assert.Equal(t, 10, entry.LowStockThreshold)
	assert.Equal(t, enums.StockStatusInStock, entry.Status)

	var count int64
	require.NoError(t, db.Model(&models.StockEntry{}).Where("medicine_id = ?", medicine.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRepositoryListByPharmacy(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	pharmacyID := uuid.New()
	otherPharmacy := uuid.New()

	seedMedicine(t, db, pharmacyID, "Amoxicillin 250mg", 0, 20)
	seedMedicine(t, db, pharmacyID, "Pantoprazole 40mg", 100, 20)
	seedMedicine(t, db, otherPharmacy, "Azithromycin 500mg", 50, 20)

	rows, err := repo.ListByPharmacy(context.Background(), pharmacyID, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Amoxicillin 250mg", rows[0].MedicineName)
	assert.Equal(t, enums.StockStatusOutOfStock, rows[0].Status)
	assert.Equal(t, "Pantoprazole 40mg", rows[1].MedicineName)
	assert.Equal(t, enums.StockStatusInStock, rows[1].Status)

	low := enums.StockStatusOutOfStock
	rows, err = repo.ListByPharmacy(context.Background(), pharmacyID, &low)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Amoxicillin 250mg", rows[0].MedicineName)
}
