package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/perkstack/rewards-backend/pkg/enums"
	"github.com/perkstack/rewards-backend/pkg/types"
)

// BulkBuyRequest is a procurement-approval purchase request. Items and
// TotalAmount are frozen at submission; only Status (and the decision fields)
// change afterward, exactly once.
type BulkBuyRequest struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestNumber   string              `gorm:"column:request_number;not null;index"`
	EmployeeID      uuid.UUID           `gorm:"column:employee_id;type:uuid;not null;index"`
	Status          enums.BulkBuyStatus `gorm:"column:status;type:bulk_buy_status;not null;default:'pending_approval'"`
	Items           []types.BulkBuyItem `gorm:"column:items;type:jsonb;serializer:json"`
	TotalAmount     string              `gorm:"column:total_amount;not null"`
	DeliveryMethod  string              `gorm:"column:delivery_method"`
	DeliveryAddress string              `gorm:"column:delivery_address"`
	DecidedBy       *uuid.UUID          `gorm:"column:decided_by;type:uuid"`
	DecidedAt       *time.Time          `gorm:"column:decided_at"`
	DecisionNote    *string             `gorm:"column:decision_note"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
