package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Notification{}, &models.UserNotification{}))
	return db
}

func newService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), NewUserRepository(db))
	require.NoError(t, err)
	return svc
}

func seedPharmacyNotifications(t *testing.T, db *gorm.DB, pharmacyID uuid.UUID, count int) []models.Notification {
	t.Helper()
	rows := make([]models.Notification, count)
	base := time.Now().UTC().Add(-time.Duration(count) * time.Minute)
	for i := 0; i < count; i++ {
		rows[i] = models.Notification{
			ID:         uuid.New(),
			PharmacyID: pharmacyID,
			Type:       enums.NotificationTypeNewOrder,
			Title:      "New order received",
			Message:    "An order is awaiting confirmation.",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&rows[i]).Error)
	}
	return rows
}

func TestListForPharmacyPaginates(t *testing.T) {
	db := newTestDB(t)
	svc := newService(t, db)
	pharmacyID := uuid.New()
	seedPharmacyNotifications(t, db, pharmacyID, 7)
	seedPharmacyNotifications(t, db, uuid.New(), 3)

	first, err := svc.ListForPharmacy(context.Background(), ListParams{OwnerID: pharmacyID, Limit: 5})
	require.NoError(t, err)
	require.Len(t, first.Items, 5)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.ListForPharmacy(context.Background(), ListParams{OwnerID: pharmacyID, Limit: 5, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Empty(t, second.Cursor)

	// Newest first, no overlap between pages.
	seen := map[uuid.UUID]bool{}
	for _, row := range append(first.Items, second.Items...) {
		assert.False(t, seen[row.ID])
		seen[row.ID] = true
	}
}

func TestMarkReadAndUnreadFilter(t *testing.T) {
	db := newTestDB(t)
	svc := newService(t, db)
	pharmacyID := uuid.New()
	rows := seedPharmacyNotifications(t, db, pharmacyID, 3)

	require.NoError(t, svc.MarkPharmacyRead(context.Background(), pharmacyID, rows[0].ID))

	unread, err := svc.ListForPharmacy(context.Background(), ListParams{OwnerID: pharmacyID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread.Items, 2)

	// Marking again is a no-op, not an error.
	require.NoError(t, svc.MarkPharmacyRead(context.Background(), pharmacyID, rows[0].ID))
}

func TestMarkReadForeignOwner(t *testing.T) {
	db := newTestDB(t)
	svc := newService(t, db)
	rows := seedPharmacyNotifications(t, db, uuid.New(), 1)

	err := svc.MarkPharmacyRead(context.Background(), uuid.New(), rows[0].ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestMarkAllUserRead(t *testing.T) {
	db := newTestDB(t)
	svc := newService(t, db)
	userID := uuid.New()
	for i := 0; i < 4; i++ {
		require.NoError(t, db.Create(&models.UserNotification{
			ID:      uuid.New(),
			UserID:  userID,
			Type:    enums.NotificationTypeOrderUpdate,
			Title:   "Order update",
			Message: "Your order moved forward.",
		}).Error)
	}

	count, err := svc.MarkAllUserRead(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	unread, err := svc.ListForUser(context.Background(), ListParams{OwnerID: userID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread.Items)
}

func TestDeleteUserNotificationByOwner(t *testing.T) {
	db := newTestDB(t)
	svc := newService(t, db)
	userID := uuid.New()
	row := &models.UserNotification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    enums.NotificationTypeRefundUpdate,
		Title:   "Refund initiated",
		Message: "Your refund is on the way.",
	}
	require.NoError(t, db.Create(row).Error)

	err := svc.DeleteUserNotification(context.Background(), uuid.New(), row.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	require.NoError(t, svc.DeleteUserNotification(context.Background(), userID, row.ID))

	var count int64
	require.NoError(t, db.Model(&models.UserNotification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWriterAppendsInTransaction(t *testing.T) {
	db := newTestDB(t)
	writer, err := NewWriter(NewRepository(db), NewUserRepository(db))
	require.NoError(t, err)

	pharmacyID := uuid.New()
	err = db.Transaction(func(tx *gorm.DB) error {
		return writer.NotifyPharmacy(context.Background(), tx, &models.Notification{
			PharmacyID: pharmacyID,
			Type:       enums.NotificationTypeNewOrder,
			Title:      "New order received",
			Message:    "An order is awaiting confirmation.",
		})
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Where("pharmacy_id = ?", pharmacyID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// A rolled-back transaction takes the notification with it.
	rollbackErr := db.Transaction(func(tx *gorm.DB) error {
		if err := writer.NotifyUser(context.Background(), tx, &models.UserNotification{
			UserID:  uuid.New(),
			Type:    enums.NotificationTypeOrderUpdate,
			Title:   "Order update",
			Message: "This should not persist.",
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, rollbackErr)
	require.NoError(t, db.Model(&models.UserNotification{}).Count(&count).Error)
	assert.Zero(t, count)
}
