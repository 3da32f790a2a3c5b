package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/pagination"
)

// Sender delivers a single notification to its recipient. Implementations are
// expected to be best-effort; a failed send leaves the row undispatched so a
// later sweep can retry it.
type Sender interface {
	Send(ctx context.Context, notification models.Notification) error
}

// Service defines notification list and dispatch operations.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	DispatchPending(ctx context.Context, limit int) (int, error)
}

type service struct {
	repo   Repository
	sender Sender
	logg   *logger.Logger
}

// ListParams configures pagination for an employee's notifications.
type ListParams struct {
	EmployeeID uuid.UUID
	Limit      int
	Cursor     string
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository, sender Sender, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification sender required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, sender: sender, logg: logg}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.EmployeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee id required")
	}

	query := listNotificationsParams{
		EmployeeID: params.EmployeeID,
		Limit:      params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = next.Encode()
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

// DispatchPending sends undispatched notifications and marks the successful
// ones. Individual failures are collected rather than aborting the sweep, so
// one bad recipient cannot block the rest of the batch.
func (s *service) DispatchPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.repo.ListUndispatched(ctx, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending notifications")
	}

	dispatched := 0
	var errs error
	for _, notification := range pending {
		if err := s.sender.Send(ctx, notification); err != nil {
			logCtx := s.logg.WithField(ctx, "notification_id", notification.ID.String())
			s.logg.Error(logCtx, "notification send failed", err)
			errs = multierr.Append(errs, err)
			continue
		}
		if err := s.repo.MarkDispatched(ctx, notification.ID, time.Now()); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		dispatched++
	}
	return dispatched, errs
}

// LogSender writes notifications to the structured log instead of an outbound
// channel. It stands in for the mail integration in environments without one.
type LogSender struct {
	logg *logger.Logger
}

// NewLogSender builds a Sender that records deliveries in the log.
func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, notification models.Notification) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"recipient": notification.Recipient,
		"type":      notification.Type.String(),
		"subject":   notification.Subject,
	})
	s.logg.Info(logCtx, "notification dispatched")
	return nil
}
