package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sahilkhatri/pharmakart-backend/internal/cron"
	"github.com/sahilkhatri/pharmakart-backend/internal/notifications"
	"github.com/sahilkhatri/pharmakart-backend/internal/orders"
	"github.com/sahilkhatri/pharmakart-backend/internal/payments"
	"github.com/sahilkhatri/pharmakart-backend/internal/refunds"
	"github.com/sahilkhatri/pharmakart-backend/pkg/config"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
	"github.com/sahilkhatri/pharmakart-backend/pkg/metrics"
	"github.com/sahilkhatri/pharmakart-backend/pkg/migrate"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox"
	"github.com/sahilkhatri/pharmakart-backend/pkg/razorpay"
	"github.com/sahilkhatri/pharmakart-backend/pkg/redis"
)

const lockKeyFormat = "pharmakart:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	gdb := dbClient.DB()
	ordersRepo := orders.NewRepository(gdb)
	pharmacyNotifRepo := notifications.NewRepository(gdb)
	userNotifRepo := notifications.NewUserRepository(gdb)
	outboxRepo := outbox.NewRepository(gdb)
	outboxService := outbox.NewService(outboxRepo, logg)

	notifWriter, err := notifications.NewWriter(pharmacyNotifRepo, userNotifRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification writer", err)
		os.Exit(1)
	}

	refundMetrics := metrics.NewRefundMetrics(prometheus.DefaultRegisterer)
	refundsService, err := refunds.NewService(
		ordersRepo,
		payments.NewRepository(gdb),
		dbClient,
		gateway,
		outboxService,
		notifWriter,
		logg,
		refundMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	orderTTLJob, err := cron.NewOrderTTLJob(cron.OrderTTLJobParams{
		Logger:        logg,
		DB:            dbClient,
		PendingReader: ordersRepo,
		Outbox:        outboxService,
		Notifications: notifWriter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order ttl job", err)
		os.Exit(1)
	}

	refundRetryJob, err := cron.NewRefundRetryJob(cron.RefundRetryJobParams{
		Logger:  logg,
		Orders:  ordersRepo,
		Refunds: refundsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refund retry job", err)
		os.Exit(1)
	}

	notificationCleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		DB:            dbClient,
		PharmacyInbox: pharmacyNotifRepo,
		UserInbox:     userNotifRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	outboxRetentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(
		refundRetryJob,
		orderTTLJob,
		notificationCleanupJob,
		outboxRetentionJob,
	)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
