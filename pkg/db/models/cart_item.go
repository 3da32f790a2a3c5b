package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a pending selection. The same table backs the regular cart and
// the bulk-buy cart, split by the IsBulk flag.
type CartItem struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EmployeeID    uuid.UUID  `gorm:"column:employee_id;type:uuid;not null;index"`
	ProductID     uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	Quantity      int        `gorm:"column:quantity;not null"`
	SelectedColor *string    `gorm:"column:selected_color"`
	SelectedSize  *string    `gorm:"column:selected_size"`
	CampaignID    *uuid.UUID `gorm:"column:campaign_id;type:uuid"`
	IsBulk        bool       `gorm:"column:is_bulk;not null;default:false"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
