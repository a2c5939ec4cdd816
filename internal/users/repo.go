package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/userforge/userforge-backend/internal/rbac"
	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/query"
)

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts a new user and returns the persisted model.
func (r *repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID loads a user and their role by UUID.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail retrieves the user matching the provided email. Callers are
// expected to lower-case the address first.
func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List fetches one page of users matching the normalized params. Filters
// compile against the users/roles join through the field table.
func (r *repository) List(ctx context.Context, params query.Params) (*query.Page[models.User], error) {
	predicates := query.Compile(params.Filters, fieldTable())

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).
			Model(&models.User{}).
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

	var rows []models.User
	err := base().
		Select("users.*").
		Preload("Role").
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

// UpdateFields applies a partial column update.
func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes the user row. Dependent rows cascade at the database level.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.User{}, "id = ?", id).Error
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *repository) UpdateRole(ctx context.Context, id, roleID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("role_id", roleID).Error
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

// RegisterFailedLogin bumps the failure counter and sets the lock in one
// statement, so concurrent failed attempts cannot lose increments.
func (r *repository) RegisterFailedLogin(ctx context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE users
		 SET failed_login_attempts = failed_login_attempts + 1,
		     locked_until = CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE locked_until END
		 WHERE id = ?`,
		maxAttempts, lockUntil, id,
	).Error
}

// ResetLoginFailures clears the counter and lock after a successful login.
func (r *repository) ResetLoginFailures(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"failed_login_attempts": 0,
			"locked_until":          nil,
		}).Error
}

// CountOtherActiveAdmins counts active admin accounts excluding the given
// user. The last-admin rule refuses operations that would take this to zero.
func (r *repository) CountOtherActiveAdmins(ctx context.Context, excluding uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name = ? AND users.is_active = ? AND users.id <> ?", rbac.RoleAdmin, true, excluding).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func orderClause(sort query.Sort) string {
	if sort.Direction == query.DirectionAsc {
		return sort.Field + " ASC"
	}
	return sort.Field + " DESC"
}
