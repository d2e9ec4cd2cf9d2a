package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/internal/orders"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox/payloads"
)

const (
	pendingNudgeDays    = 2
	abandonedExpireDays = 3
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type pendingGroupReader interface {
	FindStalePendingGroups(ctx context.Context, cutoff time.Time) ([]models.OrderGroup, error)
	FindAbandonedPrepaidGroups(ctx context.Context, cutoff time.Time) ([]models.OrderGroup, error)
}

type transactionalGroupRepo interface {
	FindGroupByID(ctx context.Context, id uuid.UUID) (*models.OrderGroup, error)
	UpdateGroup(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type groupRepoFactory func(tx *gorm.DB) transactionalGroupRepo

func defaultGroupRepo(tx *gorm.DB) transactionalGroupRepo {
	return orders.NewRepository(tx)
}

type ttlNotificationWriter interface {
	NotifyPharmacy(ctx context.Context, tx *gorm.DB, notification *models.Notification) error
	NotifyUser(ctx context.Context, tx *gorm.DB, notification *models.UserNotification) error
}

// OrderTTLJobParams configure the pending order scheduler.
type OrderTTLJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	PendingReader pendingGroupReader
	Outbox        outboxEmitter
	Notifications ttlNotificationWriter
	RepoFactory   groupRepoFactory
}

// NewOrderTTLJob builds the job that reminds pharmacies about stale pending
// orders and expires prepaid groups whose payment never arrived.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.PendingReader == nil {
		return nil, fmt.Errorf("pending group reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notification writer required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultGroupRepo
	}
	return &orderTTLJob{
		logg:          params.Logger,
		db:            params.DB,
		pendingReader: params.PendingReader,
		outbox:        params.Outbox,
		notifs:        params.Notifications,
		repoFactory:   repoFactory,
		now:           time.Now,
	}, nil
}

type orderTTLJob struct {
	logg          *logger.Logger
	db            txRunner
	pendingReader pendingGroupReader
	outbox        outboxEmitter
	notifs        ttlNotificationWriter
	repoFactory   groupRepoFactory
	now           func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.nudgePendingGroups(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.expireAbandonedGroups(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

// nudgePendingGroups re-notifies pharmacies holding actionable orders that
// have sat without a decision. The loop only writes an inbox row; the group
// itself is untouched so the pharmacy can still accept or reject.
func (j *orderTTLJob) nudgePendingGroups(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-pendingNudgeDays * 24 * time.Hour)
	groups, err := j.pendingReader.FindStalePendingGroups(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale pending groups: %w", err)
	}
	nudged := 0
	for _, group := range groups {
		ref := group.OrderRef
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.notifs.NotifyPharmacy(ctx, tx, &models.Notification{
				PharmacyID: group.PharmacyID,
				Type:       enums.NotificationTypeNewOrder,
				Title:      "Order awaiting confirmation",
				Message:    fmt.Sprintf("Order %s has been waiting %d days for a decision.", ref, pendingNudgeDays),
				OrderRef:   &ref,
			})
		})
		if err != nil {
			return fmt.Errorf("nudge order %s: %w", ref, err)
		}
		nudged++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"cutoff": cutoff, "nudged": nudged})
	j.logg.Info(logCtx, "pending order nudges sent")
	return nil
}

// expireAbandonedGroups cancels prepaid groups whose gateway payment never
// completed. Stock was not yet reserved for these groups, so the cancel is a
// pure status flip plus customer notice.
func (j *orderTTLJob) expireAbandonedGroups(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-abandonedExpireDays * 24 * time.Hour)
	groups, err := j.pendingReader.FindAbandonedPrepaidGroups(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query abandoned prepaid groups: %w", err)
	}
	expired := 0
	for _, group := range groups {
		changed, err := j.expireGroup(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("expire order %s: %w", group.OrderRef, err)
		}
		if changed {
			expired++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"cutoff": cutoff, "expired": expired})
	j.logg.Info(logCtx, "abandoned prepaid orders expired")
	return nil
}

func (j *orderTTLJob) expireGroup(ctx context.Context, groupID uuid.UUID) (bool, error) {
	var changed bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		group, err := repo.FindGroupByID(ctx, groupID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		// Re-check inside the transaction; a late payment callback may have
		// captured the group between the sweep query and this write.
		if group.Status != enums.OrderStatusPendingPharmacyConfirmation ||
			group.PaymentStatus != enums.PaymentStatusPending ||
			group.PaymentMethod == enums.PaymentMethodCOD {
			return nil
		}

		now := j.now().UTC()
		if err := repo.UpdateGroup(ctx, group.ID, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}); err != nil {
			return err
		}

		ref := group.OrderRef
		if err := j.notifs.NotifyUser(ctx, tx, &models.UserNotification{
			UserID:   group.CustomerID,
			Type:     enums.NotificationTypeOrderUpdate,
			Title:    "Order expired",
			Message:  fmt.Sprintf("Order %s was cancelled because payment was not completed.", ref),
			OrderRef: &ref,
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrderGroup,
			AggregateID:   group.ID,
			Version:       1,
			Data: payloads.OrderCancelledEvent{
				OrderGroupID: group.ID,
				OrderRef:     group.OrderRef,
				CustomerID:   group.CustomerID,
				PharmacyID:   group.PharmacyID,
				CancelledAt:  now,
				Reason:       "payment not completed",
			},
		}
		if err := j.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}
