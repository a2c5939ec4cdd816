package notifications

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/enums"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
	"github.com/userforge/userforge-backend/pkg/logger"
)

// Sender delivers notifications over one channel.
type Sender interface {
	Channel() enums.NotificationChannel
	Send(ctx context.Context, notification *models.Notification) error
}

// DeliveryConfirmer marks senders that hand the message to the recipient
// synchronously. Their notifications advance straight to delivered; the
// rest stay sent until an external acknowledgement arrives.
type DeliveryConfirmer interface {
	ConfirmsDelivery() bool
}

// DispatchResult summarizes one dispatcher pass.
type DispatchResult struct {
	Picked    int
	Sent      int
	Delivered int
	Failed    int
}

// DispatcherParams packages the dependencies for the dispatcher.
type DispatcherParams struct {
	Repo      Repository
	Senders   []Sender
	BatchSize int
	Logger    *logger.Logger
}

// Dispatcher drains due pending notifications through channel senders.
// It is driven by the cron worker.
type Dispatcher struct {
	repo    Repository
	senders map[enums.NotificationChannel]Sender
	batch   int
	logg    *logger.Logger
}

// NewDispatcher builds a dispatcher over the provided channel senders.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications repository required")
	}
	if len(params.Senders) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "at least one sender required")
	}
	if params.BatchSize <= 0 {
		params.BatchSize = 50
	}

	senders := make(map[enums.NotificationChannel]Sender, len(params.Senders))
	for _, sender := range params.Senders {
		senders[sender.Channel()] = sender
	}

	return &Dispatcher{
		repo:    params.Repo,
		senders: senders,
		batch:   params.BatchSize,
		logg:    params.Logger,
	}, nil
}

// Dispatch sends one batch of due notifications. Send failures are
// recorded per row and collected; one bad notification never stops the
// rest of the batch.
func (d *Dispatcher) Dispatch(ctx context.Context) (DispatchResult, error) {
	due, err := d.repo.FindDue(ctx, time.Now().UTC(), d.batch)
	if err != nil {
		return DispatchResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find due notifications")
	}

	result := DispatchResult{Picked: len(due)}
	var errs error

	for i := range due {
		notification := &due[i]

		sender, ok := d.senders[notification.Channel]
		if !ok {
			errs = multierr.Append(errs, d.fail(ctx, notification,
				fmt.Errorf("no sender for channel %s", notification.Channel)))
			result.Failed++
			continue
		}

		if sendErr := sender.Send(ctx, notification); sendErr != nil {
			errs = multierr.Append(errs, d.fail(ctx, notification, sendErr))
			result.Failed++
			continue
		}

		if _, markErr := d.repo.MarkSent(ctx, notification.ID, time.Now().UTC()); markErr != nil {
			errs = multierr.Append(errs, markErr)
			result.Failed++
			continue
		}
		result.Sent++

		if confirmer, ok := sender.(DeliveryConfirmer); ok && confirmer.ConfirmsDelivery() {
			if _, markErr := d.repo.MarkDelivered(ctx, notification.ID); markErr != nil {
				errs = multierr.Append(errs, markErr)
				continue
			}
			result.Delivered++
		}
	}

	return result, errs
}

// Requeue moves failed notifications with retry budget back to pending.
func (d *Dispatcher) Requeue(ctx context.Context) (int64, error) {
	requeued, err := d.repo.RequeueRetryable(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "requeue notifications")
	}
	return requeued, nil
}

func (d *Dispatcher) fail(ctx context.Context, notification *models.Notification, cause error) error {
	if d.logg != nil {
		d.logg.Warn(ctx, "notification "+notification.ID.String()+" failed: "+cause.Error())
	}
	if _, err := d.repo.MarkFailed(ctx, notification.ID, cause.Error()); err != nil {
		return multierr.Append(cause, err)
	}
	return cause
}
