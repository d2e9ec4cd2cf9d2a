package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
)

type dbMedicineLoader struct {
	db *gorm.DB
}

func (l dbMedicineLoader) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Medicine, error) {
	var medicines []models.Medicine
	if err := l.db.WithContext(ctx).Where("id IN ?", ids).Find(&medicines).Error; err != nil {
		return nil, err
	}
	return medicines, nil
}

func newStockService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), dbMedicineLoader{db: db}, 20)
	require.NoError(t, err)
	return svc
}

func TestServiceReserve_decrementsAllAndDerivesStatus(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newStockService(t, db)
	pharmacyID := uuid.New()
	paracetamol := seedMedicine(t, db, pharmacyID, "Paracetamol 500mg", 100, 20)
	cough := seedMedicine(t, db, pharmacyID, "Dextromethorphan Syrup", 12, 20)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, []ReservationRequest{
			{MedicineID: paracetamol.ID, Qty: 85},
			{MedicineID: cough.ID, Qty: 12},
		})
	})
	require.NoError(t, err)

	var entry models.StockEntry
	require.NoError(t, db.First(&entry, "medicine_id = ?", paracetamol.ID).Error)
	assert.Equal(t, 15, entry.Quantity)
	assert.Equal(t, enums.StockStatusLowStock, entry.Status)

	var coughEntry models.StockEntry
	require.NoError(t, db.First(&coughEntry, "medicine_id = ?", cough.ID).Error)
	assert.Equal(t, 0, coughEntry.Quantity)
	assert.Equal(t, enums.StockStatusOutOfStock, coughEntry.Status)
}

func TestServiceReserve_collectsEveryViolation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newStockService(t, db)
	pharmacyID := uuid.New()
	scarce := seedMedicine(t, db, pharmacyID, "Insulin Glargine", 2, 20)
	plenty := seedMedicine(t, db, pharmacyID, "Multivitamin", 500, 20)
	missing := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, []ReservationRequest{
			{MedicineID: scarce.ID, Qty: 5},
			{MedicineID: plenty.ID, Qty: 3},
			{MedicineID: missing, Qty: 1},
		})
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStockConflict, typed.Code())

	violations, ok := typed.Details().([]Violation)
	require.True(t, ok)
	require.Len(t, violations, 2)
	assert.Equal(t, scarce.ID, violations[0].MedicineID)
	assert.Equal(t, "Insulin Glargine", violations[0].MedicineName)
	assert.Equal(t, 2, violations[0].Available)
	assert.Equal(t, 5, violations[0].Required)
	assert.Equal(t, missing, violations[1].MedicineID)
	assert.Equal(t, 0, violations[1].Available)
	assert.Equal(t, 1, violations[1].Required)

	// Nothing was written: the satisfiable line keeps its quantity.
	var entry models.StockEntry
	require.NoError(t, db.First(&entry, "medicine_id = ?", plenty.ID).Error)
	assert.Equal(t, 500, entry.Quantity)
}

func TestServiceReserve_aggregatesDuplicateLines(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newStockService(t, db)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, db, pharmacyID, "Omeprazole 20mg", 5, 20)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, []ReservationRequest{
			{MedicineID: medicine.ID, Qty: 3},
			{MedicineID: medicine.ID, Qty: 3},
		})
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStockConflict, typed.Code())

	violations, ok := typed.Details().([]Violation)
	require.True(t, ok)
	require.Len(t, violations, 1)
	assert.Equal(t, 5, violations[0].Available)
	assert.Equal(t, 6, violations[0].Required)
}

func TestServiceReserve_rejectsInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newStockService(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, []ReservationRequest{{MedicineID: uuid.New(), Qty: 0}})
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestServiceRestock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newStockService(t, db)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, db, pharmacyID, "Metformin 500mg", 0, 20)

	entry, err := svc.Restock(context.Background(), RestockInput{
		PharmacyID: pharmacyID,
		MedicineID: medicine.ID,
		Qty:        18,
	})
	require.NoError(t, err)
	assert.Equal(t, 18, entry.Quantity)
	assert.Equal(t, enums.StockStatusLowStock, entry.Status)

	entry, err = svc.Restock(context.Background(), RestockInput{
		PharmacyID: pharmacyID,
		MedicineID: medicine.ID,
		Qty:        50,
	})
	require.NoError(t, err)
	assert.Equal(t, 68, entry.Quantity)
	assert.Equal(t, enums.StockStatusInStock, entry.Status)
}

func TestServiceRestock_rejectsForeignMedicine(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newStockService(t, db)
	medicine := seedMedicine(t, db, uuid.New(), "Atorvastatin 10mg", 10, 20)

	_, err := svc.Restock(context.Background(), RestockInput{
		PharmacyID: uuid.New(),
		MedicineID: medicine.ID,
		Qty:        5,
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestServiceSetLevels(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newStockService(t, db)
	pharmacyID := uuid.New()

	medicine := &models.Medicine{
		ID:         uuid.New(),
		PharmacyID: pharmacyID,
		Name:       "Losartan 50mg",
		Price:      decimal.NewFromInt(120),
	}
	require.NoError(t, db.Create(medicine).Error)

	threshold := 10
	entry, err := svc.SetLevels(context.Background(), SetLevelsInput{
		PharmacyID:        pharmacyID,
		MedicineID:        medicine.ID,
		Quantity:          9,
		LowStockThreshold: &threshold,
	})
	require.NoError(t, err)
	assert.Equal(t, 9, entry.Quantity)
	assert.Equal(t, enums.StockStatusLowStock, entry.Status)

	entry, err = svc.SetLevels(context.Background(), SetLevelsInput{
		PharmacyID: pharmacyID,
		MedicineID: medicine.ID,
		Quantity:   0,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.StockStatusOutOfStock, entry.Status)
}
