package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/enums"
	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/outbox"
	"github.com/perkstack/rewards-backend/pkg/outbox/idempotency"
	"github.com/perkstack/rewards-backend/pkg/outbox/payloads"
)

const portalNotificationConsumer = "portal-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type employeeDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error)
}

// Consumer watches domain events and turns order and bulk buy transitions into
// stored notifications.
type Consumer struct {
	repo                 repository
	employees            employeeDirectory
	subscription         *pubsub.Subscriber
	idempotency          *idempotency.Manager
	procurementRecipient string
	logg                 *logger.Logger
}

// NewConsumer builds a portal notification consumer.
func NewConsumer(
	repo repository,
	employees employeeDirectory,
	subscription *pubsub.Subscriber,
	manager *idempotency.Manager,
	procurementRecipient string,
	logg *logger.Logger,
) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if employees == nil {
		return nil, fmt.Errorf("employee directory required")
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
		repo:                 repo,
		employees:            employees,
		subscription:         subscription,
		idempotency:          manager,
		procurementRecipient: procurementRecipient,
		logg:                 logg,
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
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if !c.handles(eventType) {
		c.logg.Info(logCtx, "skipping event without notification mapping")
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

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, portalNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope.Data); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, portalNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handles(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventOrderPlaced, enums.EventCopayOrderPlaced,
		enums.EventBulkBuySubmitted, enums.EventBulkBuyDecided:
		return true
	default:
		return false
	}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) error {
	switch eventType {
	case enums.EventOrderPlaced, enums.EventCopayOrderPlaced:
		var payload payloads.OrderPlacedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse order payload: %w", err)
		}
		return c.notifyOrderPlaced(ctx, payload)
	case enums.EventBulkBuySubmitted:
		var payload payloads.BulkBuySubmittedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse bulk buy payload: %w", err)
		}
		return c.notifyBulkBuySubmitted(ctx, payload)
	case enums.EventBulkBuyDecided:
		var payload payloads.BulkBuyDecidedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse decision payload: %w", err)
		}
		return c.notifyBulkBuyDecided(ctx, payload)
	default:
		return nil
	}
}

func (c *Consumer) notifyOrderPlaced(ctx context.Context, payload payloads.OrderPlacedEvent) error {
	employee, err := c.employees.FindByID(ctx, payload.EmployeeID)
	if err != nil {
		return err
	}
	return c.repo.Create(ctx, &models.Notification{
		EmployeeID: &employee.ID,
		Recipient:  employee.Email,
		Type:       enums.NotificationOrderPlaced,
		Subject:    fmt.Sprintf("Order %s confirmed", payload.OrderNumber),
		Body:       fmt.Sprintf("Your order %s has been placed using %d points.", payload.OrderNumber, payload.UsedPoints),
	})
}

func (c *Consumer) notifyBulkBuySubmitted(ctx context.Context, payload payloads.BulkBuySubmittedEvent) error {
	employee, err := c.employees.FindByID(ctx, payload.EmployeeID)
	if err != nil {
		return err
	}
	if err := c.repo.Create(ctx, &models.Notification{
		EmployeeID: &employee.ID,
		Recipient:  employee.Email,
		Type:       enums.NotificationBulkBuySubmitted,
		Subject:    fmt.Sprintf("Bulk buy request %s submitted", payload.RequestNumber),
		Body:       fmt.Sprintf("Your bulk buy request %s (%d items, total %s) is awaiting approval.", payload.RequestNumber, payload.ItemCount, payload.TotalAmount),
	}); err != nil {
		return err
	}
	if c.procurementRecipient == "" {
		return nil
	}
	return c.repo.Create(ctx, &models.Notification{
		Recipient: c.procurementRecipient,
		Type:      enums.NotificationBulkBuySubmitted,
		Subject:   fmt.Sprintf("Bulk buy request %s needs a decision", payload.RequestNumber),
		Body:      fmt.Sprintf("Request %s from %s totals %s and is pending approval.", payload.RequestNumber, employee.FullName, payload.TotalAmount),
	})
}

func (c *Consumer) notifyBulkBuyDecided(ctx context.Context, payload payloads.BulkBuyDecidedEvent) error {
	employee, err := c.employees.FindByID(ctx, payload.EmployeeID)
	if err != nil {
		return err
	}
	notificationType := enums.NotificationBulkBuyApproved
	subject := fmt.Sprintf("Bulk buy request %s approved", payload.RequestNumber)
	body := fmt.Sprintf("Your bulk buy request %s has been approved.", payload.RequestNumber)
	if payload.Status == enums.BulkBuyStatusRejected {
		notificationType = enums.NotificationBulkBuyRejected
		subject = fmt.Sprintf("Bulk buy request %s rejected", payload.RequestNumber)
		body = fmt.Sprintf("Your bulk buy request %s has been rejected.", payload.RequestNumber)
	}
	if payload.DecisionNote != nil && *payload.DecisionNote != "" {
		body = fmt.Sprintf("%s Note: %s", body, *payload.DecisionNote)
	}
	return c.repo.Create(ctx, &models.Notification{
		EmployeeID: &employee.ID,
		Recipient:  employee.Email,
		Type:       notificationType,
		Subject:    subject,
		Body:       body,
	})
}
