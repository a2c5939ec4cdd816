package rbac

import (
	"time"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/pkg/db/models"
)

// RoleView is the API shape of a role including its resolved permissions.
type RoleView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// PermissionView is the API shape of one catalog permission.
type PermissionView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
}

// GrantRequest names the permission to grant or revoke on a role.
type GrantRequest struct {
	Permission string `json:"permission" validate:"required"`
}

func newRoleView(role models.Role, permissions []string) RoleView {
	if permissions == nil {
		permissions = []string{}
	}
	return RoleView{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		IsActive:    role.IsActive,
		Permissions: permissions,
		CreatedAt:   role.CreatedAt,
	}
}

func newPermissionView(permission models.Permission) PermissionView {
	return PermissionView{
		ID:          permission.ID,
		Name:        permission.Name,
		Resource:    permission.Resource,
		Action:      permission.Action,
		Description: permission.Description,
	}
}
