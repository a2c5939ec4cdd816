package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/enums"
	"github.com/userforge/userforge-backend/pkg/query"
)

// Repository exposes notification persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) (*models.Notification, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID *uuid.UUID, params query.Params) (*query.Page[models.Notification], error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	ListTypes(ctx context.Context) ([]models.NotificationType, error)
	FindTypeByName(ctx context.Context, name string) (*models.NotificationType, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, sendErr string) (bool, error)
	RequeueRetryable(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a notifications repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, err
	}
	return notification, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).
		First(&notification, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

// List fetches one page of notifications. A non-nil userID scopes the
// query to that recipient regardless of filters.
func (r *repository) List(ctx context.Context, userID *uuid.UUID, params query.Params) (*query.Page[models.Notification], error) {
	predicates := query.Compile(params.Filters, fieldTable())

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).
			Model(&models.Notification{}).
			Joins("JOIN notification_types ON notification_types.id = notifications.type_id")
		if userID != nil {
			q = q.Where("notifications.user_id = ?", *userID)
		}
		for _, predicate := range predicates {
			q = q.Where(predicate.Expr, predicate.Args...)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.Notification
	err := base().
		Select("notifications.*").
		Order(orderClause(params.Sort)).
		Limit(params.Pagination.Limit).
		Offset(params.Pagination.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	page := query.NewPage(rows, total, params.Pagination)
	return &page, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.Notification{}, "id = ?", id).Error
}

func (r *repository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL AND status <> ?", userID, enums.NotificationStatusFailed).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ListTypes(ctx context.Context) ([]models.NotificationType, error) {
	var types []models.NotificationType
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&types).Error
	if err != nil {
		return nil, err
	}
	return types, nil
}

func (r *repository) FindTypeByName(ctx context.Context, name string) (*models.NotificationType, error) {
	var notificationType models.NotificationType
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&notificationType).Error
	if err != nil {
		return nil, err
	}
	return &notificationType, nil
}

// FindDue returns pending notifications ready for dispatch, most urgent
// first within insertion order.
func (r *repository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("status = ? AND (scheduled_for IS NULL OR scheduled_for <= ?)", enums.NotificationStatusPending, now).
		Order("CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END, created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSent flips pending to sent. Returns false when the row was not in
// pending, which callers treat as a stale transition.
func (r *repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND status = ?", id, enums.NotificationStatusPending).
		Updates(map[string]any{
			"status":  enums.NotificationStatusSent,
			"sent_at": at,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND status = ?", id, enums.NotificationStatusSent).
		Update("status", enums.NotificationStatusDelivered)
	return result.RowsAffected > 0, result.Error
}

// MarkRead stamps read_at once. Works from sent or delivered.
func (r *repository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND status IN ? AND read_at IS NULL",
			id, []enums.NotificationStatus{enums.NotificationStatusSent, enums.NotificationStatusDelivered}).
		Updates(map[string]any{
			"status":  enums.NotificationStatusRead,
			"read_at": at,
		})
	return result.RowsAffected > 0, result.Error
}

// MarkFailed records a send failure and bumps the retry counter.
func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, sendErr string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND status = ?", id, enums.NotificationStatusPending).
		Updates(map[string]any{
			"status":      enums.NotificationStatusFailed,
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  sendErr,
		})
	return result.RowsAffected > 0, result.Error
}

// RequeueRetryable puts failed notifications with remaining retry budget
// back to pending.
func (r *repository) RequeueRetryable(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("status = ? AND retry_count < max_retries", enums.NotificationStatusFailed).
		Update("status", enums.NotificationStatusPending)
	return result.RowsAffected, result.Error
}

func orderClause(sort query.Sort) string {
	if sort.Direction == query.DirectionAsc {
		return sort.Field + " ASC"
	}
	return sort.Field + " DESC"
}
