package rbac

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/pkg/db"
	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/logger"
)

var roleDescriptions = map[string]string{
	RoleAdmin:     "Full access to every resource",
	RoleModerator: "Read access across users, profiles, notifications and logs",
	RoleUser:      "Standard account, own resources only",
}

// Seed ensures the built-in roles, the permission catalog and the default
// grants exist. Safe to run repeatedly; existing rows are left untouched.
func Seed(ctx context.Context, repo Repository, logg *logger.Logger) error {
	permissionsByName := map[string]*models.Permission{}
	for _, entry := range Catalog() {
		permission, err := ensurePermission(ctx, repo, entry)
		if err != nil {
			return fmt.Errorf("seeding permission %s: %w", entry.Name(), err)
		}
		permissionsByName[entry.Name()] = permission
	}

	for roleName, grants := range DefaultRoleGrants() {
		role, err := ensureRole(ctx, repo, roleName)
		if err != nil {
			return fmt.Errorf("seeding role %s: %w", roleName, err)
		}
		for _, permissionName := range grants {
			permission, ok := permissionsByName[permissionName]
			if !ok {
				return fmt.Errorf("role %s references unknown permission %s", roleName, permissionName)
			}
			if err := repo.Grant(ctx, role.ID, permission.ID); err != nil {
				return fmt.Errorf("granting %s to %s: %w", permissionName, roleName, err)
			}
		}
	}

	if logg != nil {
		logg.Info(ctx, "RBAC catalog seeded")
	}
	return nil
}

func ensureRole(ctx context.Context, repo Repository, name string) (*models.Role, error) {
	role, err := repo.FindRoleByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !db.IsNotFound(err) {
		return nil, err
	}
	return repo.CreateRole(ctx, &models.Role{
		ID:          uuid.New(),
		Name:        name,
		Description: roleDescriptions[name],
		IsActive:    true,
	})
}

func ensurePermission(ctx context.Context, repo Repository, entry CatalogEntry) (*models.Permission, error) {
	permission, err := repo.FindPermissionByName(ctx, entry.Name())
	if err == nil {
		return permission, nil
	}
	if !db.IsNotFound(err) {
		return nil, err
	}
	return repo.CreatePermission(ctx, &models.Permission{
		ID:          uuid.New(),
		Name:        entry.Name(),
		Resource:    entry.Resource,
		Action:      entry.Action,
		Description: entry.Description,
	})
}
