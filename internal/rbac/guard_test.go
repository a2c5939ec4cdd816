package rbac

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/userforge/userforge-backend/pkg/db/models"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
)

func newTestGuard(t *testing.T, repo Repository) *Guard {
	t.Helper()
	guard, err := NewGuard(newTestGraph(t, repo))
	require.NoError(t, err)
	return guard
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr, "expected a coded error, got %v", err)
	assert.Equal(t, code, appErr.Code())
}

func TestAuthorizeOwnershipShortCircuit(t *testing.T) {
	repo := &fakeRepo{}
	guard := newTestGuard(t, repo)
	ctx := context.Background()

	callerID := uuid.New()
	caller := Caller{ID: callerID, Role: RoleUser, Active: true}

	err := guard.Authorize(ctx, caller, ResourceProfiles, ActionUpdate, &callerID)
	require.NoError(t, err)
	assert.Zero(t, repo.loads, "owner access must not hit the graph")
}

func TestAuthorizeOtherUserRequiresPermission(t *testing.T) {
	repo := &fakeRepo{permissions: map[string][]models.Permission{}}
	guard := newTestGuard(t, repo)
	ctx := context.Background()

	caller := Caller{ID: uuid.New(), Role: RoleUser, Active: true}
	otherID := uuid.New()

	err := guard.Authorize(ctx, caller, ResourceProfiles, ActionRead, &otherID)
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestAuthorizeEscalationIgnoresOwnership(t *testing.T) {
	repo := &fakeRepo{}
	guard := newTestGuard(t, repo)
	ctx := context.Background()

	callerID := uuid.New()
	caller := Caller{ID: callerID, Role: RoleUser, Active: true}

	for _, action := range []string{ActionActivate, ActionDeactivate, ActionManageRoles} {
		err := guard.Authorize(ctx, caller, ResourceUsers, action, &callerID)
		assertCode(t, err, pkgerrors.CodeForbidden)
	}
	assert.Equal(t, 3, repo.loads)
}

func TestAuthorizeAdminViaGraph(t *testing.T) {
	repo := &fakeRepo{permissions: map[string][]models.Permission{
		RoleAdmin: {permissionRow(ResourceUsers, ActionDelete)},
	}}
	guard := newTestGuard(t, repo)

	caller := Caller{ID: uuid.New(), Role: RoleAdmin, Active: true}
	otherID := uuid.New()

	err := guard.Authorize(context.Background(), caller, ResourceUsers, ActionDelete, &otherID)
	require.NoError(t, err)
}

func TestAuthorizeInactiveCallerDenied(t *testing.T) {
	repo := &fakeRepo{permissions: map[string][]models.Permission{
		RoleAdmin: {permissionRow(ResourceUsers, ActionRead)},
	}}
	guard := newTestGuard(t, repo)

	callerID := uuid.New()
	caller := Caller{ID: callerID, Role: RoleAdmin, Active: false}

	err := guard.Authorize(context.Background(), caller, ResourceUsers, ActionRead, &callerID)
	assertCode(t, err, pkgerrors.CodeUnauthorized)
	assert.Zero(t, repo.loads)
}

func TestAuthorizeMissingIdentity(t *testing.T) {
	guard := newTestGuard(t, &fakeRepo{})

	err := guard.Authorize(context.Background(), Caller{}, ResourceUsers, ActionRead, nil)
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestAuthorizeFailsClosedOnLookupError(t *testing.T) {
	repo := &fakeRepo{err: gorm.ErrInvalidDB}
	guard := newTestGuard(t, repo)

	caller := Caller{ID: uuid.New(), Role: RoleAdmin, Active: true}
	err := guard.Authorize(context.Background(), caller, ResourceUsers, ActionRead, nil)
	assertCode(t, err, pkgerrors.CodeForbidden)
}
