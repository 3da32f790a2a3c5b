package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product represents a redeemable catalog listing.
type Product struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string         `gorm:"column:sku;not null"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	BasePrice   string         `gorm:"column:base_price;not null"`
	Stock       int            `gorm:"column:stock;not null;default:0"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	Colors      pq.StringArray `gorm:"column:colors;type:text[]"`
	Sizes       pq.StringArray `gorm:"column:sizes;type:text[]"`
	PriceSlabs  []PriceSlab    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
