package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/perkstack/rewards-backend/pkg/enums"
)

// Employee is a portal account with a redeemable point balance.
type Employee struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string     `gorm:"column:email;not null;uniqueIndex"`
	FullName       string     `gorm:"column:full_name;not null"`
	Points         int64      `gorm:"column:points;not null;default:0"`
	BulkBuyAllowed bool       `gorm:"column:bulk_buy_allowed;not null;default:false"`
	Role           enums.Role `gorm:"column:role;type:role;not null;default:'user'"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
