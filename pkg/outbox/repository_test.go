package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox/payloads"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return db
}

func queueEvent(t *testing.T, db *gorm.DB, svc *Service, aggregateID uuid.UUID) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrderGroup,
			AggregateID:   aggregateID,
			Version:       1,
			Data:          payloads.OrderPlacedEvent{OrderRef: "ORD-11AA22BB"},
		})
	})
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}
}

func TestEmitIfNotExistsQueuesOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)
	aggregateID := uuid.New()

	event := DomainEvent{
		EventType:     enums.EventDeliveryRequested,
		AggregateType: enums.AggregateDelivery,
		AggregateID:   aggregateID,
		Version:       1,
		Data:          payloads.DeliveryRequestedEvent{OrderRef: "ORD-33CC44DD"},
	}
	for i := 0; i < 3; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		})
		if err != nil {
			t.Fatalf("emit attempt %d failed: %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", aggregateID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one queued event, got %d", count)
	}

	// A different event type for the same aggregate still queues.
	other := event
	other.EventType = enums.EventDeliveryClaimed
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(context.Background(), tx, other)
	})
	if err != nil {
		t.Fatalf("emit of second type failed: %v", err)
	}
	if err := db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", aggregateID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected two queued events, got %d", count)
	}
}

func TestFetchUnpublishedForPublishSkipsSettledRows(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	queueEvent(t, db, svc, uuid.New())
	queueEvent(t, db, svc, uuid.New())
	queueEvent(t, db, svc, uuid.New())

	var all []models.OutboxEvent
	if err := db.Order("created_at ASC, id ASC").Find(&all).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkPublishedTx(tx, all[0].ID); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, all[1].ID, errors.New("poison payload"), 5)
	})
	if err != nil {
		t.Fatalf("settle rows: %v", err)
	}

	var fetched []models.OutboxEvent
	err = db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 5)
		fetched = rows
		return err
	})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(fetched) != 1 {
		t.Fatalf("expected 1 publishable row, got %d", len(fetched))
	}
	if fetched[0].ID != all[2].ID {
		t.Fatalf("fetched wrong row: %s", fetched[0].ID)
	}
}

func TestMarkFailedTxCountsAttempts(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	queueEvent(t, db, svc, uuid.New())

	var event models.OutboxEvent
	if err := db.First(&event).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return repo.MarkFailedTx(tx, event.ID, errors.New("broker unreachable"))
		})
		if err != nil {
			t.Fatalf("mark failed: %v", err)
		}
	}

	var reloaded models.OutboxEvent
	if err := db.First(&reloaded, "id = ?", event.ID).Error; err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if reloaded.AttemptCount != 2 {
		t.Fatalf("expected 2 attempts, got %d", reloaded.AttemptCount)
	}
	if reloaded.LastError == nil || *reloaded.LastError != "broker unreachable" {
		t.Fatalf("last_error not recorded")
	}
	if reloaded.PublishedAt != nil {
		t.Fatalf("failed row must stay unpublished")
	}
}
