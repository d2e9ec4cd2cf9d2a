package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
)

const notificationRetentionDays = 30

// NotificationCleanupJobParams configure the notification retention job.
type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	PharmacyInbox notificationsCleanupRepo
	UserInbox     notificationsCleanupRepo
	Retention     int
}

type notificationsCleanupRepo interface {
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewNotificationCleanupJob builds the job that purges read notifications
// older than the retention window from both the pharmacy and user inboxes.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.PharmacyInbox == nil {
		return nil, fmt.Errorf("pharmacy notifications repository required")
	}
	if params.UserInbox == nil {
		return nil, fmt.Errorf("user notifications repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = notificationRetentionDays
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		db:        params.DB,
		pharmacy:  params.PharmacyInbox,
		users:     params.UserInbox,
		retention: retention,
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	db        txRunner
	pharmacy  notificationsCleanupRepo
	users     notificationsCleanupRepo
	retention int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var pharmacyDeleted, userDeleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.pharmacy.DeleteReadBefore(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		pharmacyDeleted = rows
		rows, err = j.users.DeleteReadBefore(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		userDeleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":           cutoff,
		"retention_days":   j.retention,
		"pharmacy_deleted": pharmacyDeleted,
		"user_deleted":     userDeleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
