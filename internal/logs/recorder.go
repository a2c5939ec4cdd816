package logs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/enums"
	"github.com/userforge/userforge-backend/pkg/logger"
)

// Entry captures one handled request for the audit trail.
type Entry struct {
	UserID     *uuid.UUID
	Action     string
	Resource   string
	Method     string
	Path       string
	StatusCode int
	UserAgent  string
	IP         string
	Duration   time.Duration
	Err        error
	Metadata   map[string]any
}

// Recorder persists audit entries. A failed write is logged and swallowed
// so auditing never fails the request it describes.
type Recorder struct {
	repo Repository
	logg *logger.Logger
}

// NewRecorder builds an audit recorder over the logs repository.
func NewRecorder(repo Repository, logg *logger.Logger) *Recorder {
	return &Recorder{repo: repo, logg: logg}
}

// Record writes one audit row. The level derives from the response status.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	model := &models.LogEntry{
		UserID:     entry.UserID,
		Action:     entry.Action,
		Resource:   entry.Resource,
		Method:     entry.Method,
		Path:       entry.Path,
		StatusCode: entry.StatusCode,
		Level:      enums.LogLevelForStatus(entry.StatusCode),
		UserAgent:  entry.UserAgent,
		IP:         entry.IP,
		DurationMs: entry.Duration.Milliseconds(),
	}

	if entry.Err != nil {
		message := entry.Err.Error()
		model.Error = &message
	}
	if len(entry.Metadata) > 0 {
		if raw, err := json.Marshal(entry.Metadata); err == nil {
			encoded := string(raw)
			model.Metadata = &encoded
		}
	}

	if _, err := r.repo.Create(ctx, model); err != nil && r.logg != nil {
		r.logg.Error(ctx, "audit log write failed", err)
	}
}
