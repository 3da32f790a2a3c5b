package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/enums"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

func setupOrdersRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  employee_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  selected_color TEXT,
  selected_size TEXT,
  campaign_id TEXT,
  status TEXT NOT NULL DEFAULT 'placed',
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func TestRepositoryUpdateStatus(t *testing.T) {
	db := setupOrdersRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := &models.Order{
		OrderNumber: "ORD-2026-0001",
		EmployeeID:  uuid.New(),
		ProductID:   uuid.New(),
		Quantity:    1,
		Status:      enums.OrderStatusPlaced,
	}
	require.NoError(t, db.Create(order).Error)

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, enums.OrderStatusShipped))

	var got models.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusShipped, got.Status)
}

func TestRepositoryUpdateStatusMissingOrder(t *testing.T) {
	db := setupOrdersRepoDB(t)
	repo := NewRepository(db)

	err := repo.UpdateStatus(context.Background(), uuid.New(), enums.OrderStatusShipped)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
