package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/userforge/userforge-backend/pkg/db/models"
)

// fakeRepo serves canned permission sets and counts lookups so cache
// behavior is observable.
type fakeRepo struct {
	Repository
	permissions map[string][]models.Permission
	err         error
	loads       int
}

func (f *fakeRepo) PermissionsForRole(ctx context.Context, roleName string) ([]models.Permission, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return f.permissions[roleName], nil
}

func permissionRow(resource, action string) models.Permission {
	return models.Permission{
		ID:       uuid.New(),
		Name:     PermissionKey(resource, action),
		Resource: resource,
		Action:   action,
	}
}

func newTestGraph(t *testing.T, repo Repository) *Graph {
	t.Helper()
	graph, err := NewGraph(repo)
	require.NoError(t, err)
	return graph
}

func TestGraphHasPermission(t *testing.T) {
	repo := &fakeRepo{permissions: map[string][]models.Permission{
		"moderator": {
			permissionRow(ResourceUsers, ActionRead),
			permissionRow(ResourceUsers, ActionList),
		},
	}}
	graph := newTestGraph(t, repo)
	ctx := context.Background()

	ok, err := graph.HasPermission(ctx, "moderator", ResourceUsers, ActionRead)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = graph.HasPermission(ctx, "moderator", ResourceUsers, ActionDelete)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = graph.HasPermission(ctx, "ghost-role", ResourceUsers, ActionRead)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGraphCachesPerRole(t *testing.T) {
	repo := &fakeRepo{permissions: map[string][]models.Permission{
		"moderator": {permissionRow(ResourceUsers, ActionRead)},
	}}
	graph := newTestGraph(t, repo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := graph.HasPermission(ctx, "moderator", ResourceUsers, ActionRead)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.loads)

	graph.Invalidate("moderator")
	_, err := graph.HasPermission(ctx, "moderator", ResourceUsers, ActionRead)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loads)
}

func TestGraphLookupErrorSurfaces(t *testing.T) {
	repo := &fakeRepo{err: gorm.ErrInvalidDB}
	graph := newTestGraph(t, repo)

	ok, err := graph.HasPermission(context.Background(), "admin", ResourceUsers, ActionRead)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, gorm.ErrInvalidDB))
}

func TestGraphHasAnyHasAll(t *testing.T) {
	repo := &fakeRepo{permissions: map[string][]models.Permission{
		"moderator": {
			permissionRow(ResourceUsers, ActionRead),
			permissionRow(ResourceLogs, ActionList),
		},
	}}
	graph := newTestGraph(t, repo)
	ctx := context.Background()

	any, err := graph.HasAny(ctx, "moderator", "users:delete", "logs:list")
	require.NoError(t, err)
	assert.True(t, any)

	all, err := graph.HasAll(ctx, "moderator", "users:read", "logs:list")
	require.NoError(t, err)
	assert.True(t, all)

	all, err = graph.HasAll(ctx, "moderator", "users:read", "users:delete")
	require.NoError(t, err)
	assert.False(t, all)
}

func TestGraphPermissionsSorted(t *testing.T) {
	repo := &fakeRepo{permissions: map[string][]models.Permission{
		"moderator": {
			permissionRow(ResourceUsers, ActionRead),
			permissionRow(ResourceLogs, ActionList),
			permissionRow(ResourceProfiles, ActionRead),
		},
	}}
	graph := newTestGraph(t, repo)

	keys, err := graph.Permissions(context.Background(), "moderator")
	require.NoError(t, err)
	assert.Equal(t, []string{"logs:list", "profiles:read", "users:read"}, keys)
}
