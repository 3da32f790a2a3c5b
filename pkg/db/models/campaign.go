package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign groups promoted products under an optional per-user purchase cap.
type Campaign struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string    `gorm:"column:name;not null"`
	IsActive           bool      `gorm:"column:is_active;not null;default:true"`
	MaxProductsPerUser *int      `gorm:"column:max_products_per_user"`
	Products           []Product `gorm:"many2many:campaign_products"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CampaignAccess whitelists an employee email for a restricted campaign.
type CampaignAccess struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID uuid.UUID `gorm:"column:campaign_id;type:uuid;not null;index"`
	Email      string    `gorm:"column:email;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps gorm from pluralizing to campaign_accesses.
func (CampaignAccess) TableName() string {
	return "campaign_access"
}
