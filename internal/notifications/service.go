package notifications

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/internal/rbac"
	"github.com/userforge/userforge-backend/pkg/config"
	"github.com/userforge/userforge-backend/pkg/db"
	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/enums"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
	"github.com/userforge/userforge-backend/pkg/logger"
	"github.com/userforge/userforge-backend/pkg/query"
)

// TypeDTO is the transport shape of a catalog notification type.
type TypeDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// Service exposes the notification surface for recipients and admins.
type Service interface {
	Create(ctx context.Context, caller rbac.Caller, input CreateNotificationInput) (*NotificationDTO, error)
	Get(ctx context.Context, caller rbac.Caller, id uuid.UUID) (*NotificationDTO, error)
	List(ctx context.Context, caller rbac.Caller, userID uuid.UUID, values url.Values) (*query.Page[NotificationDTO], error)
	ListAll(ctx context.Context, caller rbac.Caller, values url.Values) (*query.Page[NotificationDTO], error)
	MarkRead(ctx context.Context, caller rbac.Caller, id uuid.UUID) (*NotificationDTO, error)
	Delete(ctx context.Context, caller rbac.Caller, id uuid.UUID) error
	UnreadCount(ctx context.Context, caller rbac.Caller, userID uuid.UUID) (int64, error)
	ListTypes(ctx context.Context) ([]TypeDTO, error)
}

// ServiceParams packages the dependencies for the notifications service.
type ServiceParams struct {
	Repo   Repository
	Guard  *rbac.Guard
	Config config.NotificationsConfig
	Logger *logger.Logger
}

type service struct {
	repo  Repository
	guard *rbac.Guard
	cfg   config.NotificationsConfig
	logg  *logger.Logger

	typeMu      sync.RWMutex
	typesByID   map[uuid.UUID]string
	typesByName map[string]uuid.UUID
}

// NewService builds a notifications service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications repository required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "authorization guard required")
	}
	return &service{
		repo:        params.Repo,
		guard:       params.Guard,
		cfg:         params.Config,
		logg:        params.Logger,
		typesByID:   map[uuid.UUID]string{},
		typesByName: map[string]uuid.UUID{},
	}, nil
}

func (s *service) Create(ctx context.Context, caller rbac.Caller, input CreateNotificationInput) (*NotificationDTO, error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceNotifications, rbac.ActionCreate, nil); err != nil {
		return nil, err
	}

	channel, err := enums.ParseNotificationChannel(input.Channel)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	priority := enums.NotificationPriorityNormal
	if input.Priority != "" {
		if priority, err = enums.ParseNotificationPriority(input.Priority); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
	}

	typeID, err := s.typeID(ctx, input.Type)
	if err != nil {
		return nil, err
	}

	maxRetries := s.cfg.DefaultMaxRetries
	if input.MaxRetries != nil {
		maxRetries = *input.MaxRetries
	}

	notification, err := s.repo.Create(ctx, &models.Notification{
		UserID:       input.UserID,
		TypeID:       typeID,
		Title:        input.Title,
		Message:      input.Message,
		Channel:      channel,
		Status:       enums.NotificationStatusPending,
		Priority:     priority,
		ScheduledFor: input.ScheduledFor,
		MaxRetries:   maxRetries,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create notification")
	}
	return FromModel(notification, input.Type), nil
}

// Get loads one notification. The recipient is only known from the row
// itself, so the guard runs after the load and a permission deny is
// reported as not found so other recipients' IDs cannot be enumerated.
func (s *service) Get(ctx context.Context, caller rbac.Caller, id uuid.UUID) (*NotificationDTO, error) {
	notification, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceNotifications, rbac.ActionRead, &notification.UserID); err != nil {
		return nil, hideExistence(err)
	}
	return s.toDTO(ctx, notification), nil
}

// hideExistence rewrites a permission deny on a row-addressed operation
// into the same not-found error a missing row produces.
func hideExistence(err error) error {
	if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeForbidden {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return err
}

// List returns one recipient's notifications. Owners list their own
// without any granted permission.
func (s *service) List(ctx context.Context, caller rbac.Caller, userID uuid.UUID, values url.Values) (*query.Page[NotificationDTO], error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceNotifications, rbac.ActionList, &userID); err != nil {
		return nil, err
	}
	return s.list(ctx, &userID, values)
}

// ListAll is the admin view across every recipient.
func (s *service) ListAll(ctx context.Context, caller rbac.Caller, values url.Values) (*query.Page[NotificationDTO], error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceNotifications, rbac.ActionList, nil); err != nil {
		return nil, err
	}
	return s.list(ctx, nil, values)
}

func (s *service) list(ctx context.Context, userID *uuid.UUID, values url.Values) (*query.Page[NotificationDTO], error) {
	params := query.ParseParams(values, listOptions())
	page, err := s.repo.List(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}

	views := make([]NotificationDTO, 0, len(page.Data))
	for i := range page.Data {
		views = append(views, *s.toDTO(ctx, &page.Data[i]))
	}
	return &query.Page[NotificationDTO]{Data: views, Pagination: page.Pagination}, nil
}

// MarkRead stamps the read receipt. Reading an already read notification
// or one that was never sent is a state conflict.
func (s *service) MarkRead(ctx context.Context, caller rbac.Caller, id uuid.UUID) (*NotificationDTO, error) {
	notification, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceNotifications, rbac.ActionUpdate, &notification.UserID); err != nil {
		return nil, hideExistence(err)
	}

	ok, err := s.repo.MarkRead(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"notification cannot move to read from "+string(notification.Status))
	}

	notification, err = s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toDTO(ctx, notification), nil
}

func (s *service) Delete(ctx context.Context, caller rbac.Caller, id uuid.UUID) error {
	notification, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceNotifications, rbac.ActionDelete, &notification.UserID); err != nil {
		return hideExistence(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete notification")
	}
	return nil
}

func (s *service) UnreadCount(ctx context.Context, caller rbac.Caller, userID uuid.UUID) (int64, error) {
	if err := s.guard.Authorize(ctx, caller, rbac.ResourceNotifications, rbac.ActionRead, &userID); err != nil {
		return 0, err
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread notifications")
	}
	return count, nil
}

// ListTypes returns the seeded catalog. Available to any authenticated
// caller so clients can render type pickers.
func (s *service) ListTypes(ctx context.Context) ([]TypeDTO, error) {
	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notification types")
	}
	views := make([]TypeDTO, 0, len(types))
	for _, t := range types {
		views = append(views, TypeDTO{ID: t.ID, Name: t.Name, Description: t.Description})
	}
	return views, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find notification")
	}
	return notification, nil
}

func (s *service) toDTO(ctx context.Context, notification *models.Notification) *NotificationDTO {
	return FromModel(notification, s.typeName(ctx, notification.TypeID))
}

// typeID resolves a catalog type by name, caching the immutable catalog.
func (s *service) typeID(ctx context.Context, name string) (uuid.UUID, error) {
	s.typeMu.RLock()
	id, ok := s.typesByName[name]
	s.typeMu.RUnlock()
	if ok {
		return id, nil
	}

	notificationType, err := s.repo.FindTypeByName(ctx, name)
	if err != nil {
		if db.IsNotFound(err) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type "+name)
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find notification type")
	}

	s.typeMu.Lock()
	s.typesByName[notificationType.Name] = notificationType.ID
	s.typesByID[notificationType.ID] = notificationType.Name
	s.typeMu.Unlock()
	return notificationType.ID, nil
}

func (s *service) typeName(ctx context.Context, id uuid.UUID) string {
	s.typeMu.RLock()
	name, ok := s.typesByID[id]
	s.typeMu.RUnlock()
	if ok {
		return name
	}

	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "could not refresh notification type catalog: "+err.Error())
		}
		return ""
	}

	s.typeMu.Lock()
	for _, t := range types {
		s.typesByID[t.ID] = t.Name
		s.typesByName[t.Name] = t.ID
	}
	name = s.typesByID[id]
	s.typeMu.Unlock()
	return name
}
