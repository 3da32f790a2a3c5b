package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/enums"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
	"github.com/perkstack/rewards-backend/pkg/logger"
)

type recordingSender struct {
	sent    []models.Notification
	failFor map[string]error
}

func (s *recordingSender) Send(ctx context.Context, notification models.Notification) error {
	if err, ok := s.failFor[notification.Recipient]; ok {
		return err
	}
	s.sent = append(s.sent, notification)
	return nil
}

func setupNotificationsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	// The production schema lives in the goose migrations; sqlite fixtures
	// mirror it with portable DDL.
	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  employee_id TEXT,
  recipient TEXT NOT NULL,
  type TEXT NOT NULL,
  subject TEXT NOT NULL,
  body TEXT NOT NULL,
  dispatched_at DATETIME,
  created_at DATETIME
);`).Error)
	return db
}

func seedNotification(t *testing.T, db *gorm.DB, employeeID uuid.UUID, recipient string, createdAt time.Time) *models.Notification {
	t.Helper()
	notification := &models.Notification{
		EmployeeID: &employeeID,
		Recipient:  recipient,
		Type:       enums.NotificationOrderPlaced,
		Subject:    "Order confirmed",
		Body:       "Your order has been placed.",
		CreatedAt:  createdAt,
	}
	require.NoError(t, db.Create(notification).Error)
	return notification
}

func TestListPaginatesByCursor(t *testing.T) {
	db := setupNotificationsDB(t)
	sender := &recordingSender{}
	svc, err := NewService(NewRepository(db), sender, logger.New(logger.Options{}))
	require.NoError(t, err)

	employeeID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedNotification(t, db, employeeID, "sam@corp.test", base.Add(time.Duration(i)*time.Minute))
	}
	seedNotification(t, db, uuid.New(), "other@corp.test", base)

	first, err := svc.List(context.Background(), ListParams{EmployeeID: employeeID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.List(context.Background(), ListParams{
		EmployeeID: employeeID,
		Limit:      2,
		Cursor:     first.Cursor,
	})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.Cursor)
	assert.True(t, first.Items[1].CreatedAt.After(second.Items[0].CreatedAt))
}

func TestListRejectsBadCursor(t *testing.T) {
	db := setupNotificationsDB(t)
	svc, err := NewService(NewRepository(db), &recordingSender{}, logger.New(logger.Options{}))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{
		EmployeeID: uuid.New(),
		Cursor:     "not-base64!",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDispatchPendingSkipsFailedSends(t *testing.T) {
	db := setupNotificationsDB(t)
	sender := &recordingSender{failFor: map[string]error{
		"broken@corp.test": errors.New("mailbox unavailable"),
	}}
	svc, err := NewService(NewRepository(db), sender, logger.New(logger.Options{}))
	require.NoError(t, err)

	employeeID := uuid.New()
	base := time.Now().Add(-time.Hour)
	seedNotification(t, db, employeeID, "sam@corp.test", base)
	seedNotification(t, db, employeeID, "broken@corp.test", base.Add(time.Minute))
	seedNotification(t, db, employeeID, "pat@corp.test", base.Add(2*time.Minute))

	dispatched, err := svc.DispatchPending(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, 2, dispatched)
	assert.Len(t, sender.sent, 2)

	var remaining int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("dispatched_at IS NULL").
		Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestDispatchPendingIgnoresAlreadyDispatched(t *testing.T) {
	db := setupNotificationsDB(t)
	sender := &recordingSender{}
	svc, err := NewService(NewRepository(db), sender, logger.New(logger.Options{}))
	require.NoError(t, err)

	employeeID := uuid.New()
	notification := seedNotification(t, db, employeeID, "sam@corp.test", time.Now())
	now := time.Now()
	require.NoError(t, db.Model(notification).UpdateColumn("dispatched_at", now).Error)

	dispatched, err := svc.DispatchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, dispatched)
	assert.Empty(t, sender.sent)
}
