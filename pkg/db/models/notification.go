package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/perkstack/rewards-backend/pkg/enums"
)

// Notification stores a queued email/in-app notification for an employee or
// the procurement distribution list.
type Notification struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EmployeeID   *uuid.UUID             `gorm:"column:employee_id;type:uuid;index"`
	Recipient    string                 `gorm:"column:recipient;not null"`
	Type         enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Subject      string                 `gorm:"column:subject;not null"`
	Body         string                 `gorm:"column:body;not null"`
	DispatchedAt *time.Time             `gorm:"column:dispatched_at"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
}
