package models

import (
	"time"

	"github.com/google/uuid"
)

// PriceSlab captures one validated tier of a product's volume pricing table.
// MaxQty is nil for the open-ended tier; at most one such tier exists per
// product and intervals never overlap (enforced by the pricing normalizer
// before rows reach this model).
type PriceSlab struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	MinQty    int       `gorm:"column:min_qty;not null"`
	MaxQty    *int      `gorm:"column:max_qty"`
	Price     string    `gorm:"column:price;not null"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
