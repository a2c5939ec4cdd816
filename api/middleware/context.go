package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/internal/rbac"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// CallerFromContext rebuilds the authenticated principal seeded by Auth.
// Deactivation revokes every session the user holds and Auth requires a
// live session, so a caller that reaches a handler is active.
func CallerFromContext(ctx context.Context) (rbac.Caller, error) {
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return rbac.Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return rbac.Caller{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid credentials")
	}
	role := RoleFromContext(ctx)
	if role == "" {
		return rbac.Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return rbac.Caller{ID: id, Role: role, Active: true}, nil
}
