package enums

import "fmt"

// NotificationType classifies portal notifications.
type NotificationType string

const (
	NotificationOrderPlaced      NotificationType = "order_placed"
	NotificationBulkBuySubmitted NotificationType = "bulk_buy_submitted"
	NotificationBulkBuyApproved  NotificationType = "bulk_buy_approved"
	NotificationBulkBuyRejected  NotificationType = "bulk_buy_rejected"
)

var validNotificationTypes = []NotificationType{
	NotificationOrderPlaced,
	NotificationBulkBuySubmitted,
	NotificationBulkBuyApproved,
	NotificationBulkBuyRejected,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
