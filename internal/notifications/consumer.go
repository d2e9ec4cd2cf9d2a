package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox/idempotency"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox/payloads"
)

const deliveryNotificationConsumer = "delivery-notifications"

type userNotificationWriter interface {
	Create(ctx context.Context, notification *models.UserNotification) error
}

type partnerLister interface {
	FindDeliveryPartnerIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Consumer watches domain events and fans delivery requests out to every
// delivery partner as a claimable-order notification.
type Consumer struct {
	users        userNotificationWriter
	partners     partnerLister
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the delivery notification consumer.
func NewConsumer(users userNotificationWriter, partners partnerLister, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if users == nil {
		return nil, fmt.Errorf("user notification writer required")
	}
	if partners == nil {
		return nil, fmt.Errorf("partner lister required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		users:        users,
		partners:     partners,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventDeliveryRequested) {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, deliveryNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.DeliveryRequestedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, deliveryNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"order_ref":   payload.OrderRef,
		"delivery_id": payload.DeliveryID.String(),
	})

	if err := c.fanOut(ctx, payload); err != nil {
		c.logg.Error(logCtx, "delivery fan-out failed", err)
		_ = c.idempotency.Delete(ctx, deliveryNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "delivery request fanned out to partners")
	return processResult{ack: true}
}

func (c *Consumer) fanOut(ctx context.Context, payload payloads.DeliveryRequestedEvent) error {
	partnerIDs, err := c.partners.FindDeliveryPartnerIDs(ctx)
	if err != nil {
		return fmt.Errorf("list delivery partners: %w", err)
	}

	message := fmt.Sprintf("Order %s is ready for pickup and open for claiming.", payload.OrderRef)
	for _, partnerID := range partnerIDs {
		notification := &models.UserNotification{
			UserID:   partnerID,
			Type:     enums.NotificationTypeDeliveryRequest,
			Title:    "New delivery order",
			Message:  message,
			OrderRef: &payload.OrderRef,
		}
		if err := c.users.Create(ctx, notification); err != nil {
			return fmt.Errorf("notify partner %s: %w", partnerID, err)
		}
	}
	return nil
}
