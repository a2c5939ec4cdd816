package profiles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/query"
)

// Repository exposes profile persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	Create(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error)
	Save(ctx context.Context, profile *models.UserProfile) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	List(ctx context.Context, params query.Params) (*query.Page[models.UserProfile], error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a profiles repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) Create(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// Save persists every field of an existing profile row.
func (r *repository) Save(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *repository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.UserProfile{}, "user_id = ?", userID).Error
}

// List fetches one page of profiles matching the normalized params.
func (r *repository) List(ctx context.Context, params query.Params) (*query.Page[models.UserProfile], error) {
	predicates := query.Compile(params.Filters, fieldTable())

	// Listings always join through users so role filters can bind.
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.UserProfile{}).
			Joins("JOIN users ON users.id = user_profiles.user_id").
			Joins("JOIN roles ON roles.id = users.role_id")
		for _, predicate := range predicates {
			q = q.Where(predicate.Expr, predicate.Args...)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.UserProfile
	err := base().
		Select("user_profiles.*").
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

func orderClause(sort query.Sort) string {
	if sort.Direction == query.DirectionAsc {
		return sort.Field + " ASC"
	}
	return sort.Field + " DESC"
}
