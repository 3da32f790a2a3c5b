package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/logger"
)

// Both purge jobs keep thirty days of history unless configured otherwise.
const (
	defaultRetentionDays     = 30
	defaultOutboxMinAttempts = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// purgeJob deletes aged rows in one transaction and logs the row count.
// The cutoff, purge statement, and extra log fields come from the
// constructor that built it.
type purgeJob struct {
	name   string
	logg   *logger.Logger
	db     txRunner
	days   int
	fields map[string]any
	purge  func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	now    func() time.Time
}

func (j *purgeJob) Name() string { return j.name }

func (j *purgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	var purged int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		purged = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	fields := map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_purged":    purged,
	}
	for key, value := range j.fields {
		fields[key] = value
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "purge complete")
	return nil
}

type notificationPurgeRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NotificationPurgeParams configure the dispatched-notification purge.
type NotificationPurgeParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Repo      notificationPurgeRepo
	Retention int
}

// NewNotificationPurgeJob purges dispatched notifications older than the
// retention window. Undispatched rows are kept for the worker to retry.
func NewNotificationPurgeJob(params NotificationPurgeParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	days := params.Retention
	if days <= 0 {
		days = defaultRetentionDays
	}
	repo := params.Repo
	return &purgeJob{
		name: "purge-notifications",
		logg: params.Logger,
		db:   params.DB,
		days: days,
		purge: func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeleteOlderThan(ctx, tx, cutoff)
		},
		now: time.Now,
	}, nil
}

type outboxPurgeRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// OutboxPurgeParams configure the outbox event purge.
type OutboxPurgeParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repo        outboxPurgeRepo
	Retention   int
	MinAttempts int
}

// NewOutboxPurgeJob purges published outbox events older than the
// retention window, plus unpublished ones whose attempts are exhausted
// and therefore already parked in the DLQ.
func NewOutboxPurgeJob(params OutboxPurgeParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	days := params.Retention
	if days <= 0 {
		days = defaultRetentionDays
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = defaultOutboxMinAttempts
	}
	repo := params.Repo
	return &purgeJob{
		name:   "purge-outbox",
		logg:   params.Logger,
		db:     params.DB,
		days:   days,
		fields: map[string]any{"min_attempts": minAttempts},
		purge: func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
		},
		now: time.Now,
	}, nil
}
