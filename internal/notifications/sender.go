package notifications

import (
	"context"

	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/enums"
	"github.com/userforge/userforge-backend/pkg/logger"
)

// LogSender writes deliveries to the structured log instead of an external
// provider. It backs every channel in dev and test environments.
type LogSender struct {
	channel enums.NotificationChannel
	logg    *logger.Logger
}

// NewLogSender builds a log-backed sender for one channel.
func NewLogSender(channel enums.NotificationChannel, logg *logger.Logger) *LogSender {
	return &LogSender{channel: channel, logg: logg}
}

// NewLogSenders builds log-backed senders for every channel.
func NewLogSenders(logg *logger.Logger) []Sender {
	return []Sender{
		NewLogSender(enums.NotificationChannelEmail, logg),
		NewLogSender(enums.NotificationChannelPush, logg),
		NewLogSender(enums.NotificationChannelSMS, logg),
		NewLogSender(enums.NotificationChannelInApp, logg),
	}
}

func (s *LogSender) Channel() enums.NotificationChannel {
	return s.channel
}

// ConfirmsDelivery reports synchronous delivery for the in-app channel.
// In-app notifications land in the recipient's inbox the moment they are
// written; the other channels wait on provider acknowledgements.
func (s *LogSender) ConfirmsDelivery() bool {
	return s.channel == enums.NotificationChannelInApp
}

func (s *LogSender) Send(ctx context.Context, notification *models.Notification) error {
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"notification_id": notification.ID.String(),
			"channel":         string(s.channel),
			"recipient":       notification.UserID.String(),
		})
		s.logg.Info(ctx, "delivering notification: "+notification.Title)
	}
	return nil
}
