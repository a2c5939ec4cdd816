package cron

import (
	"context"
	"fmt"

	"github.com/userforge/userforge-backend/pkg/logger"
)

// LogRetentionJobParams configure the retention job.
type LogRetentionJobParams struct {
	Logger *logger.Logger
	Logs   logRetention
}

type logRetention interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// NewLogRetentionJob builds the job that prunes expired audit entries.
func NewLogRetentionJob(params LogRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Logs == nil {
		return nil, fmt.Errorf("logs service required")
	}
	return &logRetentionJob{
		logg: params.Logger,
		logs: params.Logs,
	}, nil
}

type logRetentionJob struct {
	logg *logger.Logger
	logs logRetention
}

func (j *logRetentionJob) Name() string { return "log-retention" }

func (j *logRetentionJob) Run(ctx context.Context) error {
	removed, err := j.logs.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("log retention: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "rows_deleted", removed)
	j.logg.Info(logCtx, "log retention cleanup complete")
	return nil
}
