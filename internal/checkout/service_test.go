package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/internal/cart"
	"github.com/sahilkhatri/pharmakart-backend/internal/orders"
	"github.com/sahilkhatri/pharmakart-backend/internal/stock"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox/payloads"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Medicine{},
		&models.StockEntry{},
		&models.CartRecord{},
		&models.CartItem{},
		&models.OrderGroup{},
		&models.OrderLineItem{},
		&models.Payment{},
		&models.Notification{},
	))
	require.NoError(t, db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_cart_medicine ON cart_items (cart_id, medicine_id)",
	).Error)
	return db
}

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type recorderOutbox struct {
	events []outbox.DomainEvent
}

func (r *recorderOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type dbNotifier struct{}

func (dbNotifier) NotifyPharmacy(ctx context.Context, tx *gorm.DB, notification *models.Notification) error {
	return tx.WithContext(ctx).Create(notification).Error
}

type dbMedicineLoader struct {
	db *gorm.DB
}

func (l dbMedicineLoader) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Medicine, error) {
	var medicines []models.Medicine
	if err := l.db.WithContext(ctx).Preload("Stock").Where("id IN ?", ids).Find(&medicines).Error; err != nil {
		return nil, err
	}
	return medicines, nil
}

type fixture struct {
	db     *gorm.DB
	svc    Service
	outbox *recorderOutbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	recorder := &recorderOutbox{}
	svc, err := NewService(
		dbTxRunner{db: db},
		cart.NewRepository(db),
		orders.NewRepository(db),
		dbMedicineLoader{db: db},
		recorder,
		dbNotifier{},
		nil,
	)
	require.NoError(t, err)
	return &fixture{db: db, svc: svc, outbox: recorder}
}

func seedMedicine(t *testing.T, db *gorm.DB, pharmacyID uuid.UUID, name string, price int64, qty int) *models.Medicine {
	t.Helper()

	medicine := &models.Medicine{
		ID:         uuid.New(),
		PharmacyID: pharmacyID,
		Name:       name,
		Price:      decimal.NewFromInt(price),
	}
	require.NoError(t, db.Create(medicine).Error)

	entry := &models.StockEntry{
		ID:                uuid.New(),
		MedicineID:        medicine.ID,
		Quantity:          qty,
		LowStockThreshold: 20,
		Status:            enums.StockStatusFor(qty, 20),
	}
	require.NoError(t, db.Create(entry).Error)
	return medicine
}

func seedCart(t *testing.T, db *gorm.DB, userID uuid.UUID, items map[*models.Medicine]int) *models.CartRecord {
	t.Helper()

	record := &models.CartRecord{ID: uuid.New(), UserID: userID, Status: enums.CartStatusActive}
	require.NoError(t, db.Create(record).Error)
	for medicine, qty := range items {
		require.NoError(t, db.Create(&models.CartItem{
			ID:         uuid.New(),
			CartID:     record.ID,
			MedicineID: medicine.ID,
			Quantity:   qty,
		}).Error)
	}
	return record
}

func addr(s string) *string { return &s }

func TestExecuteGroupsCartByPharmacy(t *testing.T) {
	f := newFixture(t)
	customerID := uuid.New()
	pharmacyA := uuid.New()
	pharmacyB := uuid.New()

	aspirin := seedMedicine(t, f.db, pharmacyA, "Aspirin", 50, 30)
	ibuprofen := seedMedicine(t, f.db, pharmacyA, "Ibuprofen", 80, 30)
	cetirizine := seedMedicine(t, f.db, pharmacyB, "Cetirizine", 40, 30)
	record := seedCart(t, f.db, customerID, map[*models.Medicine]int{
		aspirin:    2,
		ibuprofen:  1,
		cetirizine: 3,
	})

	result, err := f.svc.Execute(context.Background(), customerID, Input{
		PaymentMethod:    enums.PaymentMethodRazorpay,
		DeliveryRequired: true,
		DeliveryAddress:  addr("12 MG Road, Pune"),
	})
	require.NoError(t, err)
	require.Len(t, result.Groups, 2)
	assert.True(t, result.GrandTotal.Equal(decimal.NewFromInt(300)), "grand total %s", result.GrandTotal)

	byPharmacy := make(map[uuid.UUID]GroupSummary, len(result.Groups))
	for _, g := range result.Groups {
		byPharmacy[g.PharmacyID] = g
	}
	require.Contains(t, byPharmacy, pharmacyA)
	require.Contains(t, byPharmacy, pharmacyB)
	assert.Equal(t, 2, byPharmacy[pharmacyA].ItemCount)
	assert.True(t, byPharmacy[pharmacyA].Amount.Equal(decimal.NewFromInt(180)))
	assert.Equal(t, 1, byPharmacy[pharmacyB].ItemCount)
	assert.True(t, byPharmacy[pharmacyB].Amount.Equal(decimal.NewFromInt(120)))
	assert.NotEqual(t, byPharmacy[pharmacyA].OrderRef, byPharmacy[pharmacyB].OrderRef)

	// Each group carries pending line items and one pending payment per line.
	for _, g := range result.Groups {
		var group models.OrderGroup
		require.NoError(t, f.db.Preload("Items").Preload("Payments").First(&group, "id = ?", g.OrderGroupID).Error)
		assert.Equal(t, enums.OrderStatusPendingPharmacyConfirmation, group.Status)
		assert.Equal(t, enums.PaymentStatusPending, group.PaymentStatus)
		assert.Len(t, group.Payments, len(group.Items))
		for _, payment := range group.Payments {
			require.NotNil(t, payment.OrderLineItemID)
			assert.Equal(t, enums.PaymentStatusPending, payment.Status)
		}
	}

	var converted models.CartRecord
	require.NoError(t, f.db.First(&converted, "id = ?", record.ID).Error)
	assert.Equal(t, enums.CartStatusConverted, converted.Status)

	var notifications []models.Notification
	require.NoError(t, f.db.Find(&notifications).Error)
	assert.Len(t, notifications, 2)

	var placed, convertedEvents int
	for _, event := range f.outbox.events {
		switch event.EventType {
		case enums.EventOrderPlaced:
			placed++
		case enums.EventCheckoutConverted:
			convertedEvents++
		}
	}
	assert.Equal(t, 2, placed)
	assert.Equal(t, 1, convertedEvents)

	last := f.outbox.events[len(f.outbox.events)-1]
	require.Equal(t, enums.EventCheckoutConverted, last.EventType)
	data, ok := last.Data.(payloads.CheckoutConvertedEvent)
	require.True(t, ok)
	assert.Equal(t, record.ID, data.CartID)
	assert.Len(t, data.OrderGroupIDs, 2)
}

func TestExecuteCollectsViolationsAcrossPharmacies(t *testing.T) {
	f := newFixture(t)
	customerID := uuid.New()

	scarce := seedMedicine(t, f.db, uuid.New(), "Scarce", 50, 1)
	empty := seedMedicine(t, f.db, uuid.New(), "Empty", 50, 0)
	plenty := seedMedicine(t, f.db, uuid.New(), "Plenty", 50, 100)
	record := seedCart(t, f.db, customerID, map[*models.Medicine]int{
		scarce: 4,
		empty:  2,
		plenty: 1,
	})

	_, err := f.svc.Execute(context.Background(), customerID, Input{
		PaymentMethod: enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStockConflict, typed.Code())

	violations, ok := typed.Details().([]stock.Violation)
	require.True(t, ok)
	require.Len(t, violations, 2)
	names := []string{violations[0].MedicineName, violations[1].MedicineName}
	assert.ElementsMatch(t, []string{"Scarce", "Empty"}, names)

	// Nothing converts and no groups exist while the cart is short.
	var count int64
	require.NoError(t, f.db.Model(&models.OrderGroup{}).Count(&count).Error)
	assert.Zero(t, count)
	var unchanged models.CartRecord
	require.NoError(t, f.db.First(&unchanged, "id = ?", record.ID).Error)
	assert.Equal(t, enums.CartStatusActive, unchanged.Status)
	assert.Empty(t, f.outbox.events)
}

func TestExecuteEmptyCart(t *testing.T) {
	f := newFixture(t)
	customerID := uuid.New()
	seedCart(t, f.db, customerID, nil)

	_, err := f.svc.Execute(context.Background(), customerID, Input{PaymentMethod: enums.PaymentMethodCOD})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestExecuteRequiresAddressForDelivery(t *testing.T) {
	f := newFixture(t)
	customerID := uuid.New()
	medicine := seedMedicine(t, f.db, uuid.New(), "Aspirin", 50, 10)
	seedCart(t, f.db, customerID, map[*models.Medicine]int{medicine: 1})

	_, err := f.svc.Execute(context.Background(), customerID, Input{
		PaymentMethod:    enums.PaymentMethodCOD,
		DeliveryRequired: true,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestExecuteNoActiveCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Execute(context.Background(), uuid.New(), Input{PaymentMethod: enums.PaymentMethodCOD})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
