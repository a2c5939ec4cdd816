package enums

import "fmt"

// NotificationStatus tracks delivery lifecycle state.
//
// Transitions move forward only: pending -> sent -> delivered|read.
// failed is terminal but retryable until the retry budget is exhausted.
type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "pending"
	NotificationStatusSent      NotificationStatus = "sent"
	NotificationStatusDelivered NotificationStatus = "delivered"
	NotificationStatusRead      NotificationStatus = "read"
	NotificationStatusFailed    NotificationStatus = "failed"
)

var validNotificationStatuses = []NotificationStatus{
	NotificationStatusPending,
	NotificationStatusSent,
	NotificationStatusDelivered,
	NotificationStatusRead,
	NotificationStatusFailed,
}

// IsValid reports whether the value matches the canonical status enum.
func (n NotificationStatus) IsValid() bool {
	for _, candidate := range validNotificationStatuses {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationStatus converts the raw string to NotificationStatus.
func ParseNotificationStatus(value string) (NotificationStatus, error) {
	for _, candidate := range validNotificationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification status %q", value)
}

// CanTransitionTo enforces the monotonic forward ordering of statuses.
func (n NotificationStatus) CanTransitionTo(next NotificationStatus) bool {
	switch n {
	case NotificationStatusPending:
		return next == NotificationStatusSent || next == NotificationStatusFailed
	case NotificationStatusSent:
		return next == NotificationStatusDelivered || next == NotificationStatusRead || next == NotificationStatusFailed
	case NotificationStatusDelivered:
		return next == NotificationStatusRead
	case NotificationStatusFailed:
		// retry puts the row back to pending while budget remains
		return next == NotificationStatusPending
	default:
		return false
	}
}
