package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/pkg/config"
	"github.com/userforge/userforge-backend/pkg/db"
	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/enums"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
)

// Seeded catalog type names used by system events.
const (
	TypeWelcome            = "welcome"
	TypePasswordChanged    = "password_changed"
	TypeAccountLocked      = "account_locked"
	TypeRoleChanged        = "role_changed"
	TypeSecurityAlert      = "security_alert"
	TypeSystemAnnouncement = "system_announcement"
)

// Events creates system notifications for account lifecycle changes. It
// bypasses the guard because the actor is the system itself.
type Events struct {
	repo Repository
	cfg  config.NotificationsConfig
}

// NewEvents builds the system event producer.
func NewEvents(repo Repository, cfg config.NotificationsConfig) (*Events, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications repository required")
	}
	return &Events{repo: repo, cfg: cfg}, nil
}

// Welcome greets a newly registered account.
func (e *Events) Welcome(ctx context.Context, userID uuid.UUID, displayName string) error {
	return e.emit(ctx, userID, TypeWelcome, enums.NotificationPriorityNormal,
		"Welcome aboard",
		fmt.Sprintf("Hi %s, your account is ready.", displayName))
}

// PasswordChanged alerts the owner that their password was changed.
func (e *Events) PasswordChanged(ctx context.Context, userID uuid.UUID) error {
	return e.emit(ctx, userID, TypePasswordChanged, enums.NotificationPriorityHigh,
		"Password changed",
		"The password on your account was just changed. If this was not you, contact support immediately.")
}

// AccountLocked tells the owner their account is temporarily locked.
func (e *Events) AccountLocked(ctx context.Context, userID uuid.UUID, until time.Time) error {
	return e.emit(ctx, userID, TypeAccountLocked, enums.NotificationPriorityUrgent,
		"Account locked",
		fmt.Sprintf("Too many failed sign-in attempts. Your account is locked until %s.", until.Format(time.RFC1123)))
}

// RoleChanged implements the users service notifier.
func (e *Events) RoleChanged(ctx context.Context, userID uuid.UUID, newRole string) error {
	return e.emit(ctx, userID, TypeRoleChanged, enums.NotificationPriorityHigh,
		"Role changed",
		fmt.Sprintf("An administrator changed your role to %q.", newRole))
}

// AccountStateChanged implements the users service notifier.
func (e *Events) AccountStateChanged(ctx context.Context, userID uuid.UUID, active bool) error {
	title, message := "Account deactivated", "An administrator deactivated your account."
	if active {
		title, message = "Account reactivated", "Your account is active again."
	}
	return e.emit(ctx, userID, TypeSecurityAlert, enums.NotificationPriorityHigh, title, message)
}

func (e *Events) emit(ctx context.Context, userID uuid.UUID, typeName string, priority enums.NotificationPriority, title, message string) error {
	notificationType, err := e.repo.FindTypeByName(ctx, typeName)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeInternal, "notification type catalog missing "+typeName)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find notification type")
	}

	_, err = e.repo.Create(ctx, &models.Notification{
		UserID:     userID,
		TypeID:     notificationType.ID,
		Title:      title,
		Message:    message,
		Channel:    enums.NotificationChannelInApp,
		Status:     enums.NotificationStatusPending,
		Priority:   priority,
		MaxRetries: e.cfg.DefaultMaxRetries,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create system notification")
	}
	return nil
}
