package enums

import "fmt"

// BulkBuyStatus tracks the procurement-approval lifecycle of a bulk buy request.
type BulkBuyStatus string

const (
	BulkBuyStatusPendingApproval BulkBuyStatus = "pending_approval"
	BulkBuyStatusApproved        BulkBuyStatus = "approved"
	BulkBuyStatusRejected        BulkBuyStatus = "rejected"
)

var validBulkBuyStatuses = []BulkBuyStatus{
	BulkBuyStatusPendingApproval,
	BulkBuyStatusApproved,
	BulkBuyStatusRejected,
}

// String implements fmt.Stringer.
func (b BulkBuyStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BulkBuyStatus.
func (b BulkBuyStatus) IsValid() bool {
	for _, candidate := range validBulkBuyStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsDecided reports whether the request has left pending_approval.
func (b BulkBuyStatus) IsDecided() bool {
	return b == BulkBuyStatusApproved || b == BulkBuyStatusRejected
}

// ParseBulkBuyStatus converts raw input into a BulkBuyStatus.
func ParseBulkBuyStatus(value string) (BulkBuyStatus, error) {
	for _, candidate := range validBulkBuyStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bulk buy status %q", value)
}
