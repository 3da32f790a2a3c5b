package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/perkstack/rewards-backend/pkg/enums"
	"github.com/perkstack/rewards-backend/pkg/types"
)

// Order is an immutable redemption record. Only Status and Metadata may be
// amended by administrators after creation.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber   string              `gorm:"column:order_number;not null;index"`
	EmployeeID    uuid.UUID           `gorm:"column:employee_id;type:uuid;not null;index"`
	ProductID     uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	Quantity      int                 `gorm:"column:quantity;not null"`
	SelectedColor *string             `gorm:"column:selected_color"`
	SelectedSize  *string             `gorm:"column:selected_size"`
	CampaignID    *uuid.UUID          `gorm:"column:campaign_id;type:uuid;index"`
	Status        enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'placed'"`
	Metadata      types.OrderMetadata `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
