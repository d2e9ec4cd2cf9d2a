package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sahilkhatri/pharmakart-backend/api/routes"
	"github.com/sahilkhatri/pharmakart-backend/internal/auth"
	"github.com/sahilkhatri/pharmakart-backend/internal/cart"
	"github.com/sahilkhatri/pharmakart-backend/internal/checkout"
	"github.com/sahilkhatri/pharmakart-backend/internal/delivery"
	"github.com/sahilkhatri/pharmakart-backend/internal/medicines"
	"github.com/sahilkhatri/pharmakart-backend/internal/notifications"
	"github.com/sahilkhatri/pharmakart-backend/internal/orders"
	"github.com/sahilkhatri/pharmakart-backend/internal/payments"
	"github.com/sahilkhatri/pharmakart-backend/internal/refunds"
	"github.com/sahilkhatri/pharmakart-backend/internal/stock"
	"github.com/sahilkhatri/pharmakart-backend/internal/users"
	"github.com/sahilkhatri/pharmakart-backend/pkg/config"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
	"github.com/sahilkhatri/pharmakart-backend/pkg/metrics"
	"github.com/sahilkhatri/pharmakart-backend/pkg/migrate"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox"
	"github.com/sahilkhatri/pharmakart-backend/pkg/razorpay"
	"github.com/sahilkhatri/pharmakart-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orderMetrics := metrics.NewOrderMetrics(registry)
	paymentMetrics := metrics.NewPaymentMetrics(registry)
	deliveryMetrics := metrics.NewDeliveryMetrics(registry)
	refundMetrics := metrics.NewRefundMetrics(registry)

	gdb := dbClient.DB()
	usersRepo := users.NewRepository(gdb)
	ordersRepo := orders.NewRepository(gdb)
	paymentsRepo := payments.NewRepository(gdb)
	deliveryRepo := delivery.NewRepository(gdb)
	cartRepo := cart.NewRepository(gdb)
	stockRepo := stock.NewRepository(gdb)
	medicinesRepo := medicines.NewRepository(gdb)
	pharmacyNotifRepo := notifications.NewRepository(gdb)
	userNotifRepo := notifications.NewUserRepository(gdb)

	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)

	notifWriter, err := notifications.NewWriter(pharmacyNotifRepo, userNotifRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification writer", err)
		os.Exit(1)
	}
	notifService, err := notifications.NewService(pharmacyNotifRepo, userNotifRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(usersRepo, dbClient, redisClient, cfg.JWT, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	stockService, err := stock.NewService(stockRepo, medicinesRepo, cfg.Stock.LowStockThreshold)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	medicinesService, err := medicines.NewService(medicinesRepo, stockService)
	if err != nil {
		logg.Error(context.Background(), "failed to create medicines service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, medicinesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService, stockService, medicinesRepo, notifWriter, orderMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(dbClient, cartRepo, ordersRepo, medicinesRepo, outboxService, notifWriter, orderMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(paymentsRepo, ordersRepo, dbClient, gateway, outboxService, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	deliveryService, err := delivery.NewService(deliveryRepo, ordersRepo, dbClient, outboxService, notifWriter, redisClient, deliveryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery service", err)
		os.Exit(1)
	}

	refundsService, err := refunds.NewService(ordersRepo, paymentsRepo, dbClient, gateway, outboxService, notifWriter, logg, refundMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	router := routes.NewRouter(cfg, logg, dbClient, redisClient, metricsHandler, routes.Services{
		Auth:          authService,
		Orders:        ordersService,
		Payments:      paymentsService,
		Delivery:      deliveryService,
		Refunds:       refundsService,
		Notifications: notifService,
		Cart:          cartService,
		Checkout:      checkoutService,
		Medicines:     medicinesService,
		Stock:         stockService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
