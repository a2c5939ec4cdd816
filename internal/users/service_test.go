package users

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/userforge/userforge-backend/internal/rbac"
	"github.com/userforge/userforge-backend/pkg/config"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
)

type capturedNotification struct {
	userID uuid.UUID
	role   string
	active *bool
}

type fakeNotifier struct {
	events []capturedNotification
}

func (f *fakeNotifier) RoleChanged(ctx context.Context, userID uuid.UUID, newRole string) error {
	f.events = append(f.events, capturedNotification{userID: userID, role: newRole})
	return nil
}

func (f *fakeNotifier) AccountStateChanged(ctx context.Context, userID uuid.UUID, active bool) error {
	f.events = append(f.events, capturedNotification{userID: userID, active: &active})
	return nil
}

func setupUsersService(t *testing.T) (Service, *gorm.DB, *fakeNotifier) {
	t.Helper()

	db := setupUsersTestDB(t)
	rbacRepo := rbac.NewRepository(db)
	require.NoError(t, rbac.Seed(context.Background(), rbacRepo, nil))

	graph, err := rbac.NewGraph(rbacRepo)
	require.NoError(t, err)
	guard, err := rbac.NewGuard(graph)
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Roles:    rbacRepo,
		Guard:    guard,
		Password: config.PasswordConfig{},
		Notifier: notifier,
	})
	require.NoError(t, err)
	return svc, db, notifier
}

func adminOn(t *testing.T, db *gorm.DB) rbac.Caller {
	t.Helper()
	role := mustRole(t, db, rbac.RoleAdmin)
	user := createUser(t, db, "admin-"+uuid.NewString()[:8]+"@example.com", role.ID)
	return rbac.Caller{ID: user.ID, Role: rbac.RoleAdmin, Active: true}
}

func memberOn(t *testing.T, db *gorm.DB) rbac.Caller {
	t.Helper()
	role := mustRole(t, db, rbac.RoleUser)
	user := createUser(t, db, "member-"+uuid.NewString()[:8]+"@example.com", role.ID)
	return rbac.Caller{ID: user.ID, Role: rbac.RoleUser, Active: true}
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr, "expected a coded error, got %v", err)
	assert.Equal(t, code, appErr.Code())
}

func TestCreateNormalizesEmailAndDefaultsRole(t *testing.T) {
	svc, db, _ := setupUsersService(t)
	admin := adminOn(t, db)

	user, err := svc.Create(context.Background(), admin, CreateUserInput{
		Email:       "  New.User@Example.COM ",
		Password:    "sup3r-secret",
		DisplayName: "New User",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", user.Email)
	assert.Equal(t, rbac.RoleUser, user.Role)

	_, err = svc.Create(context.Background(), admin, CreateUserInput{
		Email:       "new.user@example.com",
		Password:    "sup3r-secret",
		DisplayName: "Duplicate",
	})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc, db, _ := setupUsersService(t)
	admin := adminOn(t, db)

	_, err := svc.Create(context.Background(), admin, CreateUserInput{
		Email:       "x@example.com",
		Password:    "sup3r-secret",
		DisplayName: "X",
		Role:        "superuser",
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestGetAllowsSelfWithoutPermission(t *testing.T) {
	svc, db, _ := setupUsersService(t)
	member := memberOn(t, db)
	other := memberOn(t, db)

	own, err := svc.Get(context.Background(), member, member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, own.ID)

	_, err = svc.Get(context.Background(), member, other.ID)
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestListRequiresPermission(t *testing.T) {
	svc, db, _ := setupUsersService(t)
	admin := adminOn(t, db)
	member := memberOn(t, db)

	page, err := svc.List(context.Background(), admin, url.Values{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, page.Pagination.Total, int64(2))

	_, err = svc.List(context.Background(), member, url.Values{})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestUpdateEmailResetsVerification(t *testing.T) {
	svc, db, _ := setupUsersService(t)
	member := memberOn(t, db)
	require.NoError(t, db.Table("users").
		Where("id = ?", member.ID).
		Update("email_verified", true).Error)

	email := "renamed@example.com"
	updated, err := svc.Update(context.Background(), member, member.ID, UpdateUserInput{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)
	assert.False(t, updated.EmailVerified)
}

func TestDeactivateLastAdminRefused(t *testing.T) {
	svc, db, _ := setupUsersService(t)
	admin := adminOn(t, db)

	_, err := svc.SetActive(context.Background(), admin, admin.ID, false)
	expectCode(t, err, pkgerrors.CodeConflict)

	// With a second active admin the same call succeeds.
	other := adminOn(t, db)
	updated, err := svc.SetActive(context.Background(), admin, other.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

type fakeSessionRevoker struct {
	revoked []string
}

func (f *fakeSessionRevoker) RevokeAll(ctx context.Context, userID string) error {
	f.revoked = append(f.revoked, userID)
	return nil
}

func TestDeactivateRevokesSessions(t *testing.T) {
	db := setupUsersTestDB(t)
	rbacRepo := rbac.NewRepository(db)
	require.NoError(t, rbac.Seed(context.Background(), rbacRepo, nil))

	graph, err := rbac.NewGraph(rbacRepo)
	require.NoError(t, err)
	guard, err := rbac.NewGuard(graph)
	require.NoError(t, err)

	revoker := &fakeSessionRevoker{}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Roles:    rbacRepo,
		Guard:    guard,
		Password: config.PasswordConfig{},
		Sessions: revoker,
	})
	require.NoError(t, err)

	admin := adminOn(t, db)
	member := memberOn(t, db)

	updated, err := svc.SetActive(context.Background(), admin, member.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	require.Len(t, revoker.revoked, 1)
	assert.Equal(t, member.ID.String(), revoker.revoked[0])

	// Reactivation must not touch sessions.
	_, err = svc.SetActive(context.Background(), admin, member.ID, true)
	require.NoError(t, err)
	assert.Len(t, revoker.revoked, 1)
}

func TestDeleteLastAdminRefused(t *testing.T) {
	svc, db, _ := setupUsersService(t)
	admin := adminOn(t, db)

	err := svc.Delete(context.Background(), admin, admin.ID)
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestChangeRoleNotifiesAndGuardsLastAdmin(t *testing.T) {
	svc, db, notifier := setupUsersService(t)
	admin := adminOn(t, db)
	member := memberOn(t, db)

	updated, err := svc.ChangeRole(context.Background(), admin, member.ID, ChangeRoleInput{Role: rbac.RoleModerator})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleModerator, updated.Role)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, member.ID, notifier.events[0].userID)
	assert.Equal(t, rbac.RoleModerator, notifier.events[0].role)

	// Demoting the only admin is refused.
	_, err = svc.ChangeRole(context.Background(), admin, admin.ID, ChangeRoleInput{Role: rbac.RoleUser})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestSelfRoleChangeRequiresPermission(t *testing.T) {
	svc, db, _ := setupUsersService(t)
	member := memberOn(t, db)

	_, err := svc.ChangeRole(context.Background(), member, member.ID, ChangeRoleInput{Role: rbac.RoleAdmin})
	expectCode(t, err, pkgerrors.CodeForbidden)
}
