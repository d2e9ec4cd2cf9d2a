package orders

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/internal/stock"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Pharmacy{},
		&models.Medicine{},
		&models.StockEntry{},
		&models.OrderGroup{},
		&models.OrderLineItem{},
		&models.Payment{},
		&models.Delivery{},
		&models.Notification{},
		&models.UserNotification{},
	))
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

func (r *recorderOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range r.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	return r.Emit(ctx, tx, event)
}

func (r *recorderOutbox) eventTypes() []enums.OutboxEventType {
	types := make([]enums.OutboxEventType, len(r.events))
	for i, event := range r.events {
		types[i] = event.EventType
	}
	return types
}

type dbNotifier struct{}

func (dbNotifier) NotifyPharmacy(ctx context.Context, tx *gorm.DB, notification *models.Notification) error {
	return tx.WithContext(ctx).Create(notification).Error
}

func (dbNotifier) NotifyUser(ctx context.Context, tx *gorm.DB, notification *models.UserNotification) error {
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
	stockSvc, err := stock.NewService(stock.NewRepository(db), dbMedicineLoader{db: db}, 20)
	require.NoError(t, err)

	recorder := &recorderOutbox{}
	svc, err := NewService(NewRepository(db), dbTxRunner{db: db}, recorder, stockSvc, dbMedicineLoader{db: db}, dbNotifier{}, nil)
	require.NoError(t, err)
	return &fixture{db: db, svc: svc, outbox: recorder}
}

func seedMedicine(t *testing.T, db *gorm.DB, pharmacyID uuid.UUID, name string, qty int) *models.Medicine {
	t.Helper()

	medicine := &models.Medicine{
		ID:         uuid.New(),
		PharmacyID: pharmacyID,
		Name:       name,
		Price:      decimal.NewFromInt(60),
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

func seedPharmacy(t *testing.T, db *gorm.DB, pharmacyID uuid.UUID) {
	t.Helper()
	require.NoError(t, db.Create(&models.Pharmacy{
		ID:            pharmacyID,
		OwnerUserID:   uuid.New(),
		Name:          "City Care Pharmacy",
		LicenseNumber: "DL-2024-1187",
		Address:       "14 MG Road, Pune",
	}).Error)
}

func seedGroup(t *testing.T, db *gorm.DB, customerID, pharmacyID uuid.UUID, status enums.OrderStatus, items map[*models.Medicine]int) *models.OrderGroup {
	t.Helper()

	seedPharmacy(t, db, pharmacyID)

	ref, err := NewOrderRef()
	require.NoError(t, err)

	total := decimal.Zero
	group := &models.OrderGroup{
		ID:               uuid.New(),
		OrderRef:         ref,
		CustomerID:       customerID,
		PharmacyID:       pharmacyID,
		Status:           status,
		PaymentStatus:    enums.PaymentStatusPending,
		PaymentMethod:    enums.PaymentMethodCOD,
		TotalAmount:      decimal.Zero,
		DeliveryRequired: true,
	}
	require.NoError(t, db.Create(group).Error)

	for medicine, qty := range items {
		lineTotal := medicine.Price.Mul(decimal.NewFromInt(int64(qty)))
		total = total.Add(lineTotal)
		item := &models.OrderLineItem{
			ID:           uuid.New(),
			OrderGroupID: group.ID,
			MedicineID:   medicine.ID,
			MedicineName: medicine.Name,
			Quantity:     qty,
			UnitPrice:    medicine.Price,
			LineTotal:    lineTotal,
		}
		require.NoError(t, db.Create(item).Error)
	}
	require.NoError(t, db.Model(group).Update("total_amount", total).Error)
	return group
}

func TestCreate_singleMedicineOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Paracetamol 500mg", 40)

	address := "12 MG Road, Pune"
	group, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID:       customerID,
		MedicineID:       medicine.ID,
		Quantity:         3,
		PaymentMethod:    enums.PaymentMethodRazorpay,
		DeliveryRequired: true,
		DeliveryAddress:  &address,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, group.OrderRef)
	assert.Equal(t, enums.OrderStatusPendingPharmacyConfirmation, group.Status)
	assert.Equal(t, enums.PaymentStatusPending, group.PaymentStatus)
	assert.True(t, group.TotalAmount.Equal(decimal.NewFromInt(180)))
	require.Len(t, group.Items, 1)
	assert.Equal(t, "Paracetamol 500mg", group.Items[0].MedicineName)
	require.Len(t, group.Payments, 1)
	assert.Equal(t, enums.PaymentStatusPending, group.Payments[0].Status)
	require.NotNil(t, group.Payments[0].OrderLineItemID)
	assert.Equal(t, group.Items[0].ID, *group.Payments[0].OrderLineItemID)

	// Stock is only pre-checked at placement, not reserved.
	var entry models.StockEntry
	require.NoError(t, f.db.First(&entry, "medicine_id = ?", medicine.ID).Error)
	assert.Equal(t, 40, entry.Quantity)

	var notification models.Notification
	require.NoError(t, f.db.First(&notification, "pharmacy_id = ?", pharmacyID).Error)
	assert.Equal(t, enums.NotificationTypeNewOrder, notification.Type)

	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderPlaced}, f.outbox.eventTypes())
}

func TestCreate_stockPrecheckAndAddress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Insulin Glargine", 2)

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID:    uuid.New(),
		MedicineID:    medicine.ID,
		Quantity:      5,
		PaymentMethod: enums.PaymentMethodCOD,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStockConflict, typed.Code())

	violations, ok := typed.Details().([]stock.Violation)
	require.True(t, ok)
	require.Len(t, violations, 1)
	assert.Equal(t, 2, violations[0].Available)
	assert.Equal(t, 5, violations[0].Required)

	_, err = f.svc.Create(context.Background(), CreateInput{
		CustomerID:       uuid.New(),
		MedicineID:       medicine.ID,
		Quantity:         1,
		PaymentMethod:    enums.PaymentMethodCOD,
		DeliveryRequired: true,
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestPharmacyDecision_requiresCapturedPayment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Amoxicillin 250mg", 30)
	group := seedGroup(t, f.db, uuid.New(), pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 2})
	require.NoError(t, f.db.Model(&models.OrderGroup{}).Where("id = ?", group.ID).Update("payment_method", enums.PaymentMethodRazorpay).Error)

	err := f.svc.PharmacyDecision(context.Background(), DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionAccept,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	require.NoError(t, f.db.Model(&models.OrderGroup{}).Where("id = ?", group.ID).Update("payment_status", enums.PaymentStatusPaid).Error)
	require.NoError(t, f.svc.PharmacyDecision(context.Background(), DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionAccept,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
	}))
}

func TestNewOrderRef(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^ORD-[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		ref, err := NewOrderRef()
		require.NoError(t, err)
		assert.Regexp(t, pattern, ref)
		assert.False(t, seen[ref], "duplicate ref %s", ref)
		seen[ref] = true
	}
}

func TestPharmacyDecision_acceptReservesStockAndRequestsDelivery(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Paracetamol 500mg", 30)
	group := seedGroup(t, f.db, customerID, pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 12})

	err := f.svc.PharmacyDecision(context.Background(), DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionAccept,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
		ActorRole:       string(enums.UserRolePharmacy),
	})
	require.NoError(t, err)

	var reloaded models.OrderGroup
	require.NoError(t, f.db.First(&reloaded, "id = ?", group.ID).Error)
	assert.Equal(t, enums.OrderStatusPharmacyAccepted, reloaded.Status)
	assert.NotNil(t, reloaded.AcceptedAt)

	var entry models.StockEntry
	require.NoError(t, f.db.First(&entry, "medicine_id = ?", medicine.ID).Error)
	assert.Equal(t, 18, entry.Quantity)
	assert.Equal(t, enums.StockStatusLowStock, entry.Status)

	var delivery models.Delivery
	require.NoError(t, f.db.First(&delivery, "order_group_id = ?", group.ID).Error)
	assert.Equal(t, enums.DeliveryStatusPending, delivery.Status)
	assert.Nil(t, delivery.PartnerID)

	assert.Equal(t, []enums.OutboxEventType{enums.EventDeliveryRequested, enums.EventOrderAccepted}, f.outbox.eventTypes())

	var notification models.UserNotification
	require.NoError(t, f.db.First(&notification, "user_id = ?", customerID).Error)
	assert.Equal(t, enums.NotificationTypeOrderUpdate, notification.Type)
}

func TestPharmacyDecision_insufficientStockKeepsGroupPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pharmacyID := uuid.New()
	scarce := seedMedicine(t, f.db, pharmacyID, "Insulin Glargine", 2)
	plenty := seedMedicine(t, f.db, pharmacyID, "Multivitamin", 100)
	group := seedGroup(t, f.db, uuid.New(), pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{
		scarce: 5,
		plenty: 4,
	})

	err := f.svc.PharmacyDecision(context.Background(), DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionAccept,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStockConflict, typed.Code())

	violations, ok := typed.Details().([]stock.Violation)
	require.True(t, ok)
	require.Len(t, violations, 1)
	assert.Equal(t, scarce.ID, violations[0].MedicineID)
	assert.Equal(t, 2, violations[0].Available)
	assert.Equal(t, 5, violations[0].Required)

	var reloaded models.OrderGroup
	require.NoError(t, f.db.First(&reloaded, "id = ?", group.ID).Error)
	assert.Equal(t, enums.OrderStatusPendingPharmacyConfirmation, reloaded.Status)

	var entry models.StockEntry
	require.NoError(t, f.db.First(&entry, "medicine_id = ?", plenty.ID).Error)
	assert.Equal(t, 100, entry.Quantity)

	assert.Empty(t, f.outbox.events)
}

func TestPharmacyDecision_idempotentRepeat(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Cetirizine 10mg", 50)
	group := seedGroup(t, f.db, uuid.New(), pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 5})

	input := DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionAccept,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
	}
	require.NoError(t, f.svc.PharmacyDecision(context.Background(), input))
	eventCount := len(f.outbox.events)

	require.NoError(t, f.svc.PharmacyDecision(context.Background(), input))
	assert.Equal(t, eventCount, len(f.outbox.events))

	var entry models.StockEntry
	require.NoError(t, f.db.First(&entry, "medicine_id = ?", medicine.ID).Error)
	assert.Equal(t, 45, entry.Quantity)
}

func TestPharmacyDecision_reject(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Atorvastatin 10mg", 40)
	group := seedGroup(t, f.db, uuid.New(), pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 3})

	err := f.svc.PharmacyDecision(context.Background(), DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionReject,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
	})
	require.NoError(t, err)

	var reloaded models.OrderGroup
	require.NoError(t, f.db.First(&reloaded, "id = ?", group.ID).Error)
	assert.Equal(t, enums.OrderStatusPharmacyRejected, reloaded.Status)
	assert.NotNil(t, reloaded.RejectedAt)

	// Stock is untouched on reject.
	var entry models.StockEntry
	require.NoError(t, f.db.First(&entry, "medicine_id = ?", medicine.ID).Error)
	assert.Equal(t, 40, entry.Quantity)

	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderRejected}, f.outbox.eventTypes())
}

func TestPharmacyDecision_foreignPharmacy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Omeprazole 20mg", 10)
	group := seedGroup(t, f.db, uuid.New(), pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 1})

	err := f.svc.PharmacyDecision(context.Background(), DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionAccept,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestPharmacyDecision_rejectAfterAcceptConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Metformin 500mg", 60)
	group := seedGroup(t, f.db, uuid.New(), pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 2})

	require.NoError(t, f.svc.PharmacyDecision(context.Background(), DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionAccept,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
	}))

	err := f.svc.PharmacyDecision(context.Background(), DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionReject,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCancel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Losartan 50mg", 25)
	group := seedGroup(t, f.db, customerID, pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 2})

	err := f.svc.Cancel(context.Background(), CancelInput{
		OrderRef:    group.OrderRef,
		ActorUserID: customerID,
		Reason:      "ordered by mistake",
	})
	require.NoError(t, err)

	var reloaded models.OrderGroup
	require.NoError(t, f.db.First(&reloaded, "id = ?", group.ID).Error)
	assert.Equal(t, enums.OrderStatusCancelled, reloaded.Status)
	assert.NotNil(t, reloaded.CancelledAt)

	var notification models.Notification
	require.NoError(t, f.db.First(&notification, "pharmacy_id = ?", pharmacyID).Error)
	assert.Contains(t, notification.Message, group.OrderRef)

	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderCancelled}, f.outbox.eventTypes())

	// A second cancel is a no-op.
	require.NoError(t, f.svc.Cancel(context.Background(), CancelInput{
		OrderRef:    group.OrderRef,
		ActorUserID: customerID,
	}))
	assert.Len(t, f.outbox.events, 1)
}

func TestCancel_afterAcceptanceConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Pantoprazole 40mg", 35)
	group := seedGroup(t, f.db, customerID, pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 1})

	require.NoError(t, f.svc.PharmacyDecision(context.Background(), DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionAccept,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
	}))

	err := f.svc.Cancel(context.Background(), CancelInput{
		OrderRef:    group.OrderRef,
		ActorUserID: customerID,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestGetForCustomer_accessControl(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Azithromycin 500mg", 15)
	group := seedGroup(t, f.db, customerID, pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 1})

	loaded, err := f.svc.GetForCustomer(context.Background(), customerID, group.OrderRef)
	require.NoError(t, err)
	assert.Equal(t, group.ID, loaded.ID)
	require.Len(t, loaded.Items, 1)

	_, err = f.svc.GetForCustomer(context.Background(), uuid.New(), group.OrderRef)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	_, err = f.svc.GetForCustomer(context.Background(), customerID, fmt.Sprintf("ORD-%08X", 0))
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestPharmacyDecision_acceptSettlesCODPayments(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Ibuprofen 400mg", 20)
	group := seedGroup(t, f.db, uuid.New(), pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 2})
	require.NoError(t, f.db.Create(&models.Payment{
		ID:           uuid.New(),
		OrderGroupID: group.ID,
		Amount:       decimal.NewFromInt(120),
		Method:       enums.PaymentMethodCOD,
		Status:       enums.PaymentStatusPending,
	}).Error)

	require.NoError(t, f.svc.PharmacyDecision(context.Background(), DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionAccept,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
	}))

	var reloaded models.OrderGroup
	require.NoError(t, f.db.First(&reloaded, "id = ?", group.ID).Error)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, "order_group_id = ?", group.ID).Error)
	assert.Equal(t, enums.PaymentStatusPaid, payment.Status)
	require.NotNil(t, payment.PaidAt)
}

func TestComplete_pickupOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Dolo 650mg", 30)
	group := seedGroup(t, f.db, customerID, pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 2})
	require.NoError(t, f.db.Model(&models.OrderGroup{}).Where("id = ?", group.ID).Update("delivery_required", false).Error)

	require.NoError(t, f.svc.PharmacyDecision(context.Background(), DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionAccept,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
	}))

	input := CompleteInput{
		OrderRef:        group.OrderRef,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
		ActorRole:       string(enums.UserRolePharmacy),
	}
	require.NoError(t, f.svc.Complete(context.Background(), input))

	var reloaded models.OrderGroup
	require.NoError(t, f.db.First(&reloaded, "id = ?", group.ID).Error)
	assert.Equal(t, enums.OrderStatusDelivered, reloaded.Status)
	require.NotNil(t, reloaded.DeliveredAt)

	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderAccepted, enums.EventOrderDelivered}, f.outbox.eventTypes())

	// A repeat hand-over is a no-op.
	require.NoError(t, f.svc.Complete(context.Background(), input))
	assert.Len(t, f.outbox.events, 2)
}

func TestComplete_deliveryOrderConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Cough Syrup 100ml", 12)
	group := seedGroup(t, f.db, uuid.New(), pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 1})

	require.NoError(t, f.svc.PharmacyDecision(context.Background(), DecisionInput{
		OrderRef:        group.OrderRef,
		Decision:        DecisionAccept,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
	}))

	err := f.svc.Complete(context.Background(), CompleteInput{
		OrderRef:        group.OrderRef,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: pharmacyID,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestComplete_foreignPharmacy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pharmacyID := uuid.New()
	medicine := seedMedicine(t, f.db, pharmacyID, "Vitamin D3 60k", 8)
	group := seedGroup(t, f.db, uuid.New(), pharmacyID, enums.OrderStatusPendingPharmacyConfirmation, map[*models.Medicine]int{medicine: 1})

	err := f.svc.Complete(context.Background(), CompleteInput{
		OrderRef:        group.OrderRef,
		ActorUserID:     uuid.New(),
		ActorPharmacyID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}
