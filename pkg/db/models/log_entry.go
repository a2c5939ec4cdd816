package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/pkg/enums"
)

// LogEntry is an append-only audit record of one handled request.
// Rows are removed only by the age-based retention job.
type LogEntry struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     *uuid.UUID     `gorm:"type:uuid;column:user_id;index"`
	Action     string         `gorm:"type:text;not null"`
	Resource   string         `gorm:"type:text;not null"`
	Method     string         `gorm:"type:text;not null"`
	Path       string         `gorm:"type:text;not null"`
	StatusCode int            `gorm:"column:status_code;not null"`
	Level      enums.LogLevel `gorm:"type:text;not null;index"`
	UserAgent  string         `gorm:"column:user_agent;type:text"`
	IP         string         `gorm:"type:text"`
	DurationMs int64          `gorm:"column:duration_ms;not null;default:0"`
	Error      *string        `gorm:"type:text"`
	Metadata   *string        `gorm:"type:text"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime;index"`
}
