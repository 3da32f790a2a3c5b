package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/perkstack/rewards-backend/api/routes"
	"github.com/perkstack/rewards-backend/internal/branding"
	"github.com/perkstack/rewards-backend/internal/bulkbuy"
	"github.com/perkstack/rewards-backend/internal/campaigns"
	"github.com/perkstack/rewards-backend/internal/cart"
	"github.com/perkstack/rewards-backend/internal/checkout"
	"github.com/perkstack/rewards-backend/internal/employees"
	"github.com/perkstack/rewards-backend/internal/notifications"
	"github.com/perkstack/rewards-backend/internal/orders"
	"github.com/perkstack/rewards-backend/internal/products"
	"github.com/perkstack/rewards-backend/pkg/auth/session"
	"github.com/perkstack/rewards-backend/pkg/config"
	"github.com/perkstack/rewards-backend/pkg/db"
	"github.com/perkstack/rewards-backend/pkg/gateway"
	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/metrics"
	"github.com/perkstack/rewards-backend/pkg/migrate"
	"github.com/perkstack/rewards-backend/pkg/outbox"
	"github.com/perkstack/rewards-backend/pkg/redis"
)

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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gatewayClient, err := gateway.NewClient(cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway client", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	productRepo := products.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	employeeRepo := employees.NewRepository(gormDB)
	campaignRepo := campaigns.NewRepository(gormDB)
	brandingRepo := branding.NewRepository(gormDB)
	bulkBuyRepo := bulkbuy.NewRepository(gormDB)
	notificationRepo := notifications.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	productService, err := products.NewService(productRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, productRepo, employeeRepo, campaignRepo, orderRepo, brandingRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		dbClient,
		cartRepo,
		orderRepo,
		productRepo,
		employeeRepo,
		campaignRepo,
		brandingRepo,
		gatewayClient,
		redisClient,
		outboxService,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	bulkBuyService, err := bulkbuy.NewService(
		dbClient,
		bulkBuyRepo,
		cartRepo,
		productRepo,
		employeeRepo,
		campaignRepo,
		orderRepo,
		outboxService,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create bulk buy service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notificationRepo, notifications.NewLogSender(logg), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

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
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            gormDB,
			Redis:         redisClient,
			Sessions:      sessionManager,
			Products:      productService,
			Cart:          cartService,
			Checkout:      checkoutService,
			BulkBuy:       bulkBuyService,
			Notifications: notificationService,
			Campaigns:     campaignRepo,
			Orders:        orderRepo,
			Employees:     employeeRepo,
			Branding:      brandingRepo,
			Metrics:       prometheus.DefaultGatherer,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
