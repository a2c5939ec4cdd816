package rbac

import (
	"context"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/pkg/db"
	"github.com/userforge/userforge-backend/pkg/db/models"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
)

// Service exposes the role administration surface.
type Service interface {
	ListRoles(ctx context.Context, caller Caller) ([]RoleView, error)
	GetRole(ctx context.Context, caller Caller, roleID uuid.UUID) (*RoleView, error)
	ListPermissions(ctx context.Context, caller Caller) ([]PermissionView, error)
	GrantPermission(ctx context.Context, caller Caller, roleID uuid.UUID, permissionName string) (*RoleView, error)
	RevokePermission(ctx context.Context, caller Caller, roleID uuid.UUID, permissionName string) (*RoleView, error)
}

// ServiceParams packages the dependencies for the role administration service.
type ServiceParams struct {
	Repo  Repository
	Graph *Graph
	Guard *Guard
}

type service struct {
	repo  Repository
	graph *Graph
	guard *Guard
}

// NewService builds the role administration service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "rbac repository required")
	}
	if params.Graph == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "permission graph required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "authorization guard required")
	}
	return &service{
		repo:  params.Repo,
		graph: params.Graph,
		guard: params.Guard,
	}, nil
}

func (s *service) ListRoles(ctx context.Context, caller Caller) ([]RoleView, error) {
	if err := s.guard.Authorize(ctx, caller, ResourceRoles, ActionList, nil); err != nil {
		return nil, err
	}

	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list roles")
	}

	views := make([]RoleView, 0, len(roles))
	for _, role := range roles {
		permissions, err := s.graph.Permissions(ctx, role.Name)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve role permissions")
		}
		views = append(views, newRoleView(role, permissions))
	}
	return views, nil
}

func (s *service) GetRole(ctx context.Context, caller Caller, roleID uuid.UUID) (*RoleView, error) {
	if err := s.guard.Authorize(ctx, caller, ResourceRoles, ActionRead, nil); err != nil {
		return nil, err
	}
	return s.roleView(ctx, roleID)
}

func (s *service) ListPermissions(ctx context.Context, caller Caller) ([]PermissionView, error) {
	if err := s.guard.Authorize(ctx, caller, ResourceRoles, ActionList, nil); err != nil {
		return nil, err
	}

	permissions, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list permissions")
	}

	views := make([]PermissionView, 0, len(permissions))
	for _, permission := range permissions {
		views = append(views, newPermissionView(permission))
	}
	return views, nil
}

func (s *service) GrantPermission(ctx context.Context, caller Caller, roleID uuid.UUID, permissionName string) (*RoleView, error) {
	if err := s.guard.Authorize(ctx, caller, ResourceRoles, ActionGrant, nil); err != nil {
		return nil, err
	}

	role, permission, err := s.resolvePair(ctx, roleID, permissionName)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Grant(ctx, role.ID, permission.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "grant permission")
	}
	s.graph.Invalidate(role.Name)

	return s.roleView(ctx, role.ID)
}

func (s *service) RevokePermission(ctx context.Context, caller Caller, roleID uuid.UUID, permissionName string) (*RoleView, error) {
	if err := s.guard.Authorize(ctx, caller, ResourceRoles, ActionRevoke, nil); err != nil {
		return nil, err
	}

	role, permission, err := s.resolvePair(ctx, roleID, permissionName)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Revoke(ctx, role.ID, permission.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke permission")
	}
	s.graph.Invalidate(role.Name)

	return s.roleView(ctx, role.ID)
}

func (s *service) resolvePair(ctx context.Context, roleID uuid.UUID, permissionName string) (*models.Role, *models.Permission, error) {
	role, err := s.repo.FindRoleByID(ctx, roleID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "role not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find role")
	}

	permission, err := s.repo.FindPermissionByName(ctx, permissionName)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "permission not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find permission")
	}

	return role, permission, nil
}

func (s *service) roleView(ctx context.Context, roleID uuid.UUID) (*RoleView, error) {
	role, err := s.repo.FindRoleByID(ctx, roleID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "role not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find role")
	}

	permissions, err := s.graph.Permissions(ctx, role.Name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve role permissions")
	}

	view := newRoleView(*role, permissions)
	return &view, nil
}
