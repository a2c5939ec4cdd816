package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/enums"
)

// NotificationDTO is the transport shape of one notification.
type NotificationDTO struct {
	ID           uuid.UUID                  `json:"id"`
	UserID       uuid.UUID                  `json:"user_id"`
	Type         string                     `json:"type"`
	Title        string                     `json:"title"`
	Message      string                     `json:"message"`
	Channel      enums.NotificationChannel  `json:"channel"`
	Status       enums.NotificationStatus   `json:"status"`
	Priority     enums.NotificationPriority `json:"priority"`
	ScheduledFor *time.Time                 `json:"scheduled_for,omitempty"`
	RetryCount   int                        `json:"retry_count"`
	MaxRetries   int                        `json:"max_retries"`
	SentAt       *time.Time                 `json:"sent_at,omitempty"`
	ReadAt       *time.Time                 `json:"read_at,omitempty"`
	LastError    *string                    `json:"last_error,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// CreateNotificationInput is the payload for creating a notification.
type CreateNotificationInput struct {
	UserID       uuid.UUID  `json:"user_id" validate:"required"`
	Type         string     `json:"type" validate:"required"`
	Title        string     `json:"title" validate:"required,max=200"`
	Message      string     `json:"message" validate:"required,max=4000"`
	Channel      string     `json:"channel" validate:"required"`
	Priority     string     `json:"priority,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	MaxRetries   *int       `json:"max_retries,omitempty" validate:"omitempty,min=0,max=10"`
}

// FromModel converts a persisted notification into its transport shape.
// typeName resolves the catalog row the model references.
func FromModel(n *models.Notification, typeName string) *NotificationDTO {
	if n == nil {
		return nil
	}
	return &NotificationDTO{
		ID:           n.ID,
		UserID:       n.UserID,
		Type:         typeName,
		Title:        n.Title,
		Message:      n.Message,
		Channel:      n.Channel,
		Status:       n.Status,
		Priority:     n.Priority,
		ScheduledFor: n.ScheduledFor,
		RetryCount:   n.RetryCount,
		MaxRetries:   n.MaxRetries,
		SentAt:       n.SentAt,
		ReadAt:       n.ReadAt,
		LastError:    n.LastError,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}
