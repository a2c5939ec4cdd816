package cron

import (
	"context"
	"fmt"

	"github.com/userforge/userforge-backend/internal/notifications"
	"github.com/userforge/userforge-backend/pkg/logger"
)

// NotificationDispatchJobParams configure the dispatch job.
type NotificationDispatchJobParams struct {
	Logger     *logger.Logger
	Dispatcher notificationDispatcher
}

type notificationDispatcher interface {
	Dispatch(ctx context.Context) (notifications.DispatchResult, error)
	Requeue(ctx context.Context) (int64, error)
}

// NewNotificationDispatchJob builds the job that drains due notifications.
func NewNotificationDispatchJob(params NotificationDispatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	return &notificationDispatchJob{
		logg:       params.Logger,
		dispatcher: params.Dispatcher,
	}, nil
}

type notificationDispatchJob struct {
	logg       *logger.Logger
	dispatcher notificationDispatcher
}

func (j *notificationDispatchJob) Name() string { return "notification-dispatch" }

// Run requeues retryable failures first so they join the current batch,
// then sends everything due. Per-row send failures are recorded on the
// rows themselves and surface here as the aggregated error.
func (j *notificationDispatchJob) Run(ctx context.Context) error {
	requeued, err := j.dispatcher.Requeue(ctx)
	if err != nil {
		return fmt.Errorf("notification requeue: %w", err)
	}

	result, dispatchErr := j.dispatcher.Dispatch(ctx)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"requeued":  requeued,
		"picked":    result.Picked,
		"sent":      result.Sent,
		"delivered": result.Delivered,
		"failed":    result.Failed,
	})
	j.logg.Info(logCtx, "notification dispatch cycle complete")

	if dispatchErr != nil {
		return fmt.Errorf("notification dispatch: %w", dispatchErr)
	}
	return nil
}
