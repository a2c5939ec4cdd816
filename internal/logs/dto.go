package logs

import (
	"time"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/enums"
)

// LogEntryDTO is the transport shape of one audit record.
type LogEntryDTO struct {
	ID         uuid.UUID      `json:"id"`
	UserID     *uuid.UUID     `json:"user_id,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Method     string         `json:"method"`
	Path       string         `json:"path"`
	StatusCode int            `json:"status_code"`
	Level      enums.LogLevel `json:"level"`
	UserAgent  string         `json:"user_agent,omitempty"`
	IP         string         `json:"ip,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Error      *string        `json:"error,omitempty"`
	Metadata   *string        `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// FromModel converts a persisted log entry into its transport shape.
func FromModel(entry *models.LogEntry) *LogEntryDTO {
	if entry == nil {
		return nil
	}
	return &LogEntryDTO{
		ID:         entry.ID,
		UserID:     entry.UserID,
		Action:     entry.Action,
		Resource:   entry.Resource,
		Method:     entry.Method,
		Path:       entry.Path,
		StatusCode: entry.StatusCode,
		Level:      entry.Level,
		UserAgent:  entry.UserAgent,
		IP:         entry.IP,
		DurationMs: entry.DurationMs,
		Error:      entry.Error,
		Metadata:   entry.Metadata,
		CreatedAt:  entry.CreatedAt,
	}
}
