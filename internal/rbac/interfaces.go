package rbac

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/userforge/userforge-backend/pkg/db/models"
)

// Repository defines persistence operations for roles, permissions and
// their join table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListRoles(ctx context.Context) ([]models.Role, error)
	FindRoleByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)
	CreateRole(ctx context.Context, role *models.Role) (*models.Role, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	FindPermissionByName(ctx context.Context, name string) (*models.Permission, error)
	CreatePermission(ctx context.Context, permission *models.Permission) (*models.Permission, error)
	PermissionsForRole(ctx context.Context, roleName string) ([]models.Permission, error)
	Grant(ctx context.Context, roleID, permissionID uuid.UUID) error
	Revoke(ctx context.Context, roleID, permissionID uuid.UUID) error
}
