package logs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/query"
)

// Repository exposes audit log persistence. Entries are append-only and
// leave the table only through DeleteOlderThan.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LogEntry) (*models.LogEntry, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.LogEntry, error)
	List(ctx context.Context, params query.Params) (*query.Page[models.LogEntry], error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a logs repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LogEntry) (*models.LogEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LogEntry, error) {
	var entry models.LogEntry
	err := r.db.WithContext(ctx).
		First(&entry, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) List(ctx context.Context, params query.Params) (*query.Page[models.LogEntry], error) {
	predicates := query.Compile(params.Filters, fieldTable())

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.LogEntry{})
		for _, predicate := range predicates {
			q = q.Where(predicate.Expr, predicate.Args...)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.LogEntry
	err := base().
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

// DeleteOlderThan removes entries created before the cutoff and reports
// how many rows went away.
func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.LogEntry{})
	return result.RowsAffected, result.Error
}

func orderClause(sort query.Sort) string {
	if sort.Direction == query.DirectionAsc {
		return sort.Field + " ASC"
	}
	return sort.Field + " DESC"
}
