package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/perkstack/rewards-backend/internal/notifications"
	"github.com/perkstack/rewards-backend/pkg/config"
	"github.com/perkstack/rewards-backend/pkg/db"
	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/pubsub"
	"github.com/perkstack/rewards-backend/pkg/redis"
)

const defaultDispatchInterval = 30 * time.Second

type ServiceParams struct {
	Config                *config.Config
	Logger                *logger.Logger
	DB                    *db.Client
	Redis                 *redis.Client
	PubSub                *pubsub.Client
	OrdersConsumer        *notifications.Consumer
	NotificationsConsumer *notifications.Consumer
	Dispatcher            notifications.Service
}

// Service runs both domain-event consumers alongside the periodic dispatch
// sweep that delivers stored notifications.
type Service struct {
	cfg                   *config.Config
	logg                  *logger.Logger
	db                    *db.Client
	redis                 *redis.Client
	pubsub                *pubsub.Client
	ordersConsumer        *notifications.Consumer
	notificationsConsumer *notifications.Consumer
	dispatcher            notifications.Service
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.OrdersConsumer == nil {
		return nil, errors.New("orders consumer is required")
	}
	if params.NotificationsConsumer == nil {
		return nil, errors.New("notifications consumer is required")
	}
	if params.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	return &Service{
		cfg:                   params.Config,
		logg:                  params.Logger,
		db:                    params.DB,
		redis:                 params.Redis,
		pubsub:                params.PubSub,
		ordersConsumer:        params.OrdersConsumer,
		notificationsConsumer: params.NotificationsConsumer,
		dispatcher:            params.Dispatcher,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.cfg.Notifications.DispatchInterval
	if interval <= 0 {
		interval = defaultDispatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.ordersConsumer.Run(ctx)
	}()
	go func() {
		errCh <- s.notificationsConsumer.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "notification worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "consumer stopped unexpectedly", err)
				return err
			}
			return err
		case <-ticker.C:
			s.dispatchPending(ctx)
		}
	}
}

func (s *Service) dispatchPending(ctx context.Context) {
	sent, err := s.dispatcher.DispatchPending(ctx, s.cfg.Notifications.DispatchBatchSize)
	if err != nil {
		s.logg.Error(ctx, "dispatch sweep failed", err)
	}
	if sent > 0 {
		s.logg.Info(s.logg.WithField(ctx, "dispatched", sent), "dispatch sweep complete")
	}
}
