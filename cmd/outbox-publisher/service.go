package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/config"
	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/enums"
	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxAttempts  = 10
	publishTimeout      = 15 * time.Second
	backoffCeiling      = 10 * time.Second
	jitterWindow        = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PublisherParams wire the outbox publisher's dependencies.
type PublisherParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
}

// Publisher drains the outbox table and relays each event to its Pub/Sub
// topic. Rows that cannot be delivered are retried with backoff; rows that
// will never deliver are parked in the DLQ.
type Publisher struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	pubsub       pubSubClient
	registry     registryResolver
	dlq          dlqRepository
	newPublisher publisherFactory
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

// NewPublisher validates the params and builds a Publisher.
func NewPublisher(params PublisherParams) (*Publisher, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}
	if params.DLQRepository == nil {
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return wrapGCPPublisher(params.PubSub.Publisher(topic))
		}
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := params.Config.Outbox.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Publisher{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		pubsub:       params.PubSub,
		registry:     params.Registry,
		dlq:          params.DLQRepository,
		newPublisher: factory,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: poll,
	}, nil
}

// Run polls the outbox until the context is canceled. An empty poll or a
// batch error backs off before the next attempt; a productive poll loops
// immediately so bursts drain quickly.
func (p *Publisher) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := p.db.Ping(ctx); err != nil {
		p.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := p.pubsub.Ping(ctx); err != nil {
		p.logg.Error(ctx, "pubsub ping failed", err)
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	delay := newRetryDelay(p.pollInterval, backoffCeiling)
	for {
		select {
		case <-ctx.Done():
			p.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		default:
		}

		drained, err := p.drainOnce(ctx)
		switch {
		case err != nil:
			p.logg.Error(ctx, "outbox drain failed", err)
			if err := sleepCtx(ctx, delay.next()); err != nil {
				return err
			}
		case drained:
			delay.reset()
		default:
			delay.reset()
			if err := sleepCtx(ctx, delay.idle()); err != nil {
				return err
			}
		}
	}
}

// drainOnce claims one batch inside a transaction and dispatches every row.
// It reports whether any rows were claimed.
func (p *Publisher) drainOnce(ctx context.Context) (bool, error) {
	claimed := false
	err := p.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := p.repo.FetchUnpublishedForPublish(tx, p.batchSize, p.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		claimed = true
		for _, event := range events {
			if err := p.dispatch(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

// dispatch publishes one event and records its disposition. Only bookkeeping
// failures return an error and abort the batch; publish failures are absorbed
// as retries or DLQ entries.
func (p *Publisher) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	resolved, err := p.registry.Resolve(event)
	if err != nil {
		return p.park(ctx, tx, event, "", enums.OutboxDLQReasonNonRetryable, err)
	}

	topic := resolved.Descriptor.Topic
	if err := p.send(ctx, event, resolved, topic); err != nil {
		var nonRetry registry.NonRetryableError
		if errors.As(err, &nonRetry) {
			return p.park(ctx, tx, event, topic, enums.OutboxDLQReasonNonRetryable, err)
		}
		if event.AttemptCount+1 >= p.maxAttempts {
			return p.park(ctx, tx, event, topic, enums.OutboxDLQReasonMaxAttempts,
				fmt.Errorf("max publish attempts reached: %w", err))
		}
		logCtx := p.logg.WithFields(ctx, p.logFields(event, topic))
		logCtx = p.logg.WithField(logCtx, "error", err.Error())
		p.logg.Warn(logCtx, "outbox publish failed, will retry")
		if markErr := p.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
		}
		return nil
	}

	if markErr := p.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
		return fmt.Errorf("mark published %s: %w", event.ID, markErr)
	}
	p.logg.Info(p.logg.WithFields(ctx, p.logFields(event, topic)), "outbox event published")
	return nil
}

// park moves the event to the DLQ and marks the outbox row terminal.
func (p *Publisher) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, topic string, reason enums.OutboxDLQErrorReason, cause error) error {
	fields := p.logFields(event, topic)
	fields["error_reason"] = reason
	logCtx := p.logg.WithFields(ctx, fields)
	logCtx = p.logg.WithField(logCtx, "error", cause.Error())
	p.logg.Warn(logCtx, "outbox event will not be retried")

	message := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := p.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := p.repo.MarkTerminalTx(tx, event.ID, cause, p.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

// send relays the event payload to its topic with per-publish timeout.
func (p *Publisher) send(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent, topic string) error {
	pub := p.newPublisher(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

func (p *Publisher) logFields(event models.OutboxEvent, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

// retryDelay doubles on each consecutive failure up to the ceiling and adds
// jitter so replicas do not poll in lockstep.
type retryDelay struct {
	base    time.Duration
	ceiling time.Duration
	current time.Duration
	rng     *rand.Rand
}

func newRetryDelay(base, ceiling time.Duration) *retryDelay {
	return &retryDelay{
		base:    base,
		ceiling: ceiling,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *retryDelay) next() time.Duration {
	if d.current <= 0 {
		d.current = d.base
	} else if d.current*2 <= d.ceiling {
		d.current *= 2
	} else {
		d.current = d.ceiling
	}
	return d.current + d.jitter()
}

func (d *retryDelay) idle() time.Duration {
	return d.base + d.jitter()
}

func (d *retryDelay) reset() {
	d.current = 0
}

func (d *retryDelay) jitter() time.Duration {
	return time.Duration(d.rng.Int63n(int64(jitterWindow)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func wrapGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{inner: p}
}

type gcpPublisher struct {
	inner *gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	result := p.inner.Publish(ctx, msg)
	if result == nil {
		return nil
	}
	return gcpPublishResult{inner: result}
}

type gcpPublishResult struct {
	inner *gcppubsub.PublishResult
}

func (r gcpPublishResult) Get(ctx context.Context) (string, error) {
	return r.inner.Get(ctx)
}
