package models

import (
	"time"

	"github.com/google/uuid"
)

// Branding is the tenant configuration record. Checkout reads it fresh on
// every invocation rather than caching the conversion rate.
type Branding struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyName          string    `gorm:"column:company_name;not null"`
	InrPerPoint          string    `gorm:"column:inr_per_point;not null;default:'1'"`
	MaxSelectionsPerUser int       `gorm:"column:max_selections_per_user;not null;default:-1"`
	SignupDomains        string    `gorm:"column:signup_domains"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
