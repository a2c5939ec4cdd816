package rbac

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
)

// Caller identifies the authenticated principal behind a request.
type Caller struct {
	ID     uuid.UUID
	Role   string
	Active bool
}

// escalationActions always require the explicit permission, even when the
// caller is targeting their own account. Without this a user could lift
// their own role or reactivate a deactivated account.
var escalationActions = map[string]struct{}{
	PermissionKey(ResourceUsers, ActionActivate):    {},
	PermissionKey(ResourceUsers, ActionDeactivate):  {},
	PermissionKey(ResourceUsers, ActionManageRoles): {},
	PermissionKey(ResourceRoles, ActionGrant):       {},
	PermissionKey(ResourceRoles, ActionRevoke):      {},
}

// Guard is the single authorization decision point. Every protected
// operation funnels through Authorize.
type Guard struct {
	graph *Graph
}

// NewGuard builds a guard over the permission graph.
func NewGuard(graph *Graph) (*Guard, error) {
	if graph == nil {
		return nil, fmt.Errorf("guard requires a permission graph")
	}
	return &Guard{graph: graph}, nil
}

// Authorize decides whether the caller may perform resource:action. When
// ownerID is non-nil and matches the caller, access is granted without a
// graph lookup unless the action escalates privileges. Graph lookup
// failures deny access.
func (g *Guard) Authorize(ctx context.Context, caller Caller, resource, action string, ownerID *uuid.UUID) error {
	if caller.ID == uuid.Nil || caller.Role == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity is missing")
	}
	if !caller.Active {
		// An inactive account no longer counts as an authenticated
		// identity, so this denies with the credential code rather
		// than a permission failure.
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "account is deactivated")
	}

	key := PermissionKey(resource, action)
	if ownerID != nil && *ownerID != uuid.Nil && *ownerID == caller.ID {
		if _, escalates := escalationActions[key]; !escalates {
			return nil
		}
	}

	allowed, err := g.graph.HasPermission(ctx, caller.Role, resource, action)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "permission check failed")
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("role %q lacks %s", caller.Role, key))
	}
	return nil
}
