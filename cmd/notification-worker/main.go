package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/perkstack/rewards-backend/internal/employees"
	"github.com/perkstack/rewards-backend/internal/notifications"
	"github.com/perkstack/rewards-backend/pkg/config"
	"github.com/perkstack/rewards-backend/pkg/db"
	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/migrate"
	"github.com/perkstack/rewards-backend/pkg/outbox/idempotency"
	"github.com/perkstack/rewards-backend/pkg/pubsub"
	"github.com/perkstack/rewards-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "notification-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "notification-worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	notificationRepo := notifications.NewRepository(dbClient.DB())
	employeeRepo := employees.NewRepository(dbClient.DB())

	idempotencyManager, err := idempotency.NewManager(redisClient, cfg.Notifications.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	ordersConsumer, err := notifications.NewConsumer(
		notificationRepo,
		employeeRepo,
		pubsubClient.OrdersSubscription(),
		idempotencyManager,
		cfg.Notifications.ProcurementRecipient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders consumer", err)
		os.Exit(1)
	}

	notificationsConsumer, err := notifications.NewConsumer(
		notificationRepo,
		employeeRepo,
		pubsubClient.NotificationsSubscription(),
		idempotencyManager,
		cfg.Notifications.ProcurementRecipient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications consumer", err)
		os.Exit(1)
	}

	dispatcher, err := notifications.NewService(notificationRepo, notifications.NewLogSender(logg), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:                cfg,
		Logger:                logg,
		DB:                    dbClient,
		Redis:                 redisClient,
		PubSub:                pubsubClient,
		OrdersConsumer:        ordersConsumer,
		NotificationsConsumer: notificationsConsumer,
		Dispatcher:            dispatcher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "notification-worker",
	})
	logg.Info(ctx, "starting notification worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "notification worker shutting down gracefully")
}
