package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox/idempotency"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox/payloads"
)

func TestConsumerFansOutDeliveryRequest(t *testing.T) {
	partners := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	writer := &capturingUserWriter{}
	consumer := newTestConsumer(t, writer, partners, &memoryIdempotencyStore{values: map[string]string{}})

	result := consumer.process(context.Background(), deliveryRequestedMessage(t, "ORD-FAN1"))

	require.True(t, result.ack)
	require.False(t, result.nack)
	require.Len(t, writer.created, len(partners))
	for i, n := range writer.created {
		require.Equal(t, partners[i], n.UserID)
		require.Equal(t, enums.NotificationTypeDeliveryRequest, n.Type)
		require.NotNil(t, n.OrderRef)
		require.Equal(t, "ORD-FAN1", *n.OrderRef)
	}
}

func TestConsumerSkipsDuplicateEvent(t *testing.T) {
	writer := &capturingUserWriter{}
	store := &memoryIdempotencyStore{values: map[string]string{}}
	consumer := newTestConsumer(t, writer, []uuid.UUID{uuid.New()}, store)
	msg := deliveryRequestedMessage(t, "ORD-DUP1")

	first := consumer.process(context.Background(), msg)
	second := consumer.process(context.Background(), msg)

	require.True(t, first.ack)
	require.True(t, second.ack)
	require.Len(t, writer.created, 1)
}

func TestConsumerAcksUnrelatedEvents(t *testing.T) {
	writer := &capturingUserWriter{}
	consumer := newTestConsumer(t, writer, nil, &memoryIdempotencyStore{values: map[string]string{}})

	result := consumer.process(context.Background(), &pubsub.Message{
		ID:         "m1",
		Attributes: map[string]string{"event_type": string(enums.EventOrderAccepted)},
	})

	require.True(t, result.ack)
	require.Empty(t, writer.created)
}

func TestConsumerNacksAndUnmarksOnFanOutFailure(t *testing.T) {
	writer := &capturingUserWriter{err: errors.New("insert failed")}
	store := &memoryIdempotencyStore{values: map[string]string{}}
	consumer := newTestConsumer(t, writer, []uuid.UUID{uuid.New()}, store)

	result := consumer.process(context.Background(), deliveryRequestedMessage(t, "ORD-ERR1"))

	require.True(t, result.nack)
	// The processed marker must be rolled back so redelivery retries the fan-out.
	require.Empty(t, store.values)
}

func newTestConsumer(t *testing.T, writer *capturingUserWriter, partners []uuid.UUID, store *memoryIdempotencyStore) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	return &Consumer{
		users:       writer,
		partners:    staticPartnerLister(partners),
		idempotency: manager,
		logg:        logger.New(logger.Options{ServiceName: "test"}),
	}
}

func deliveryRequestedMessage(t *testing.T, orderRef string) *pubsub.Message {
	t.Helper()
	payload, err := json.Marshal(payloads.DeliveryRequestedEvent{
		DeliveryID:   uuid.New(),
		OrderGroupID: uuid.New(),
		OrderRef:     orderRef,
		PharmacyID:   uuid.New(),
		Address:      "12 MG Road, Pune",
	})
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(enums.EventDeliveryRequested)},
	}
}

type capturingUserWriter struct {
	created []*models.UserNotification
	err     error
}

func (c *capturingUserWriter) Create(ctx context.Context, notification *models.UserNotification) error {
	if c.err != nil {
		return c.err
	}
	c.created = append(c.created, notification)
	return nil
}

type staticPartnerLister []uuid.UUID

func (s staticPartnerLister) FindDeliveryPartnerIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s, nil
}

type memoryIdempotencyStore struct {
	values map[string]string
}

func (m *memoryIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = "1"
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}
