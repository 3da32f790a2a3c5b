package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/perkstack/rewards-backend/pkg/enums"
)

// OrderPlacedEvent signals a points-only redemption committed to storage.
type OrderPlacedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	EmployeeID  uuid.UUID `json:"employee_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
	UsedPoints  int64     `json:"used_points"`
}

// CopayOrderPlacedEvent is emitted when a gateway-assisted order commits.
// CopayInr is the rupee amount collected on top of the point spend.
type CopayOrderPlacedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	EmployeeID  uuid.UUID `json:"employee_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
	UsedPoints  int64     `json:"used_points"`
	CopayInr    string    `json:"copay_inr"`
	PaymentID   string    `json:"payment_id"`
}

// BulkBuySubmittedEvent signals a new procurement request awaiting decision.
type BulkBuySubmittedEvent struct {
	RequestID     uuid.UUID `json:"request_id"`
	RequestNumber string    `json:"request_number"`
	EmployeeID    uuid.UUID `json:"employee_id"`
	ItemCount     int       `json:"item_count"`
	TotalAmount   string    `json:"total_amount"`
}

// BulkBuyDecidedEvent is emitted exactly once per request, on its single
// transition out of pending.
type BulkBuyDecidedEvent struct {
	RequestID     uuid.UUID           `json:"request_id"`
	RequestNumber string              `json:"request_number"`
	EmployeeID    uuid.UUID           `json:"employee_id"`
	Status        enums.BulkBuyStatus `json:"status"`
	DecidedBy     uuid.UUID           `json:"decided_by"`
	DecidedAt     time.Time           `json:"decided_at"`
	DecisionNote  *string             `json:"decision_note,omitempty"`
}

// PointsBalanceChangedEvent records a point balance mutation for downstream
// ledgers and notification fan-out.
type PointsBalanceChangedEvent struct {
	EmployeeID uuid.UUID  `json:"employee_id"`
	Delta      int64      `json:"delta"`
	Reason     string     `json:"reason"`
	OrderID    *uuid.UUID `json:"order_id,omitempty"`
}
