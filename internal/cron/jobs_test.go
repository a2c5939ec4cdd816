package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/userforge/userforge-backend/internal/notifications"
	"github.com/userforge/userforge-backend/pkg/logger"
)

type fakeDispatcher struct {
	result       notifications.DispatchResult
	dispatchErr  error
	requeueErr   error
	requeued     int64
	requeueCalls int
	dispatches   int
}

func (f *fakeDispatcher) Dispatch(ctx context.Context) (notifications.DispatchResult, error) {
	f.dispatches++
	return f.result, f.dispatchErr
}

func (f *fakeDispatcher) Requeue(ctx context.Context) (int64, error) {
	f.requeueCalls++
	return f.requeued, f.requeueErr
}

type fakeLogRetention struct {
	removed int64
	err     error
	calls   int
}

func (f *fakeLogRetention) DeleteExpired(ctx context.Context) (int64, error) {
	f.calls++
	return f.removed, f.err
}

func TestNotificationDispatchJobRequeuesBeforeDispatch(t *testing.T) {
	dispatcher := &fakeDispatcher{
		result:   notifications.DispatchResult{Picked: 3, Sent: 3},
		requeued: 2,
	}
	job, err := NewNotificationDispatchJob(NotificationDispatchJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("NewNotificationDispatchJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if dispatcher.requeueCalls != 1 || dispatcher.dispatches != 1 {
		t.Fatalf("expected one requeue and one dispatch, got %d/%d", dispatcher.requeueCalls, dispatcher.dispatches)
	}
}

func TestNotificationDispatchJobPropagatesErrors(t *testing.T) {
	dispatcher := &fakeDispatcher{requeueErr: errors.New("redis down")}
	job, err := NewNotificationDispatchJob(NotificationDispatchJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("NewNotificationDispatchJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected requeue error")
	}
	if dispatcher.dispatches != 0 {
		t.Fatalf("expected dispatch skipped after requeue failure, ran %d", dispatcher.dispatches)
	}

	dispatcher = &fakeDispatcher{dispatchErr: errors.New("smtp timeout")}
	job, err = NewNotificationDispatchJob(NotificationDispatchJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("NewNotificationDispatchJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected dispatch error")
	}
}

func TestLogRetentionJobDeletesExpired(t *testing.T) {
	retention := &fakeLogRetention{removed: 7}
	job, err := NewLogRetentionJob(LogRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Logs:   retention,
	})
	if err != nil {
		t.Fatalf("NewLogRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if retention.calls != 1 {
		t.Fatalf("expected one retention call, got %d", retention.calls)
	}

	retention = &fakeLogRetention{err: errors.New("boom")}
	job, err = NewLogRetentionJob(LogRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Logs:   retention,
	})
	if err != nil {
		t.Fatalf("NewLogRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
