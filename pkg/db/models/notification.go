package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/pkg/enums"
)

// NotificationType is the seeded catalog of notification kinds.
type NotificationType struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"type:text;not null;uniqueIndex"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Notification stores a single message addressed to one recipient.
//
// Status moves forward only; SentAt and ReadAt are written exactly once,
// on the matching transition.
type Notification struct {
	ID           uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID                  `gorm:"type:uuid;column:user_id;not null;index"`
	TypeID       uuid.UUID                  `gorm:"type:uuid;column:type_id;not null"`
	Title        string                     `gorm:"type:text;not null"`
	Message      string                     `gorm:"type:text;not null"`
	Channel      enums.NotificationChannel  `gorm:"type:text;not null"`
	Status       enums.NotificationStatus   `gorm:"type:text;not null;default:pending;index"`
	Priority     enums.NotificationPriority `gorm:"type:text;not null;default:normal"`
	ScheduledFor *time.Time                 `gorm:"column:scheduled_for"`
	RetryCount   int                        `gorm:"column:retry_count;not null;default:0"`
	MaxRetries   int                        `gorm:"column:max_retries;not null;default:3"`
	SentAt       *time.Time                 `gorm:"column:sent_at"`
	ReadAt       *time.Time                 `gorm:"column:read_at"`
	LastError    *string                    `gorm:"column:last_error;type:text"`
	CreatedAt    time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
