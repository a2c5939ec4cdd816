package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/userforge/userforge-backend/internal/rbac"
	"github.com/userforge/userforge-backend/internal/users"
	pkgauth "github.com/userforge/userforge-backend/pkg/auth"
	"github.com/userforge/userforge-backend/pkg/auth/session"
	"github.com/userforge/userforge-backend/pkg/config"
	"github.com/userforge/userforge-backend/pkg/db/models"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
)

type fakeSessions struct {
	mu      sync.Mutex
	data    map[string]string
	counter int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{data: map[string]string{}}
}

func (f *fakeSessions) Generate(ctx context.Context, userID, accessID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	token := fmt.Sprintf("refresh-%d", f.counter)
	f.data[accessID] = token
	return token, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, userID, oldAccessID, provided string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.data[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.data, oldAccessID)
	f.counter++
	newAccessID := uuid.NewString()
	token := fmt.Sprintf("refresh-%d", f.counter)
	f.data[newAccessID] = token
	return newAccessID, token, nil
}

func (f *fakeSessions) Revoke(ctx context.Context, accessID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, accessID)
	return nil
}

type fakeResetStore struct {
	data map[string]string
}

func (f *fakeResetStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeResetStore) GetDel(ctx context.Context, key string) (string, error) {
	value, ok := f.data[key]
	if !ok {
		return "", errors.New("redis: nil")
	}
	delete(f.data, key)
	return value, nil
}

func (f *fakeResetStore) ResetTokenKey(token string) string {
	return "reset:" + token
}

type fakeAuthNotifier struct {
	welcomes  int
	passwords int
	lockedFor []uuid.UUID
}

func (f *fakeAuthNotifier) Welcome(ctx context.Context, userID uuid.UUID, displayName string) error {
	f.welcomes++
	return nil
}

func (f *fakeAuthNotifier) PasswordChanged(ctx context.Context, userID uuid.UUID) error {
	f.passwords++
	return nil
}

func (f *fakeAuthNotifier) AccountLocked(ctx context.Context, userID uuid.UUID, until time.Time) error {
	f.lockedFor = append(f.lockedFor, userID)
	return nil
}

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	stmts := []string{`
CREATE TABLE IF NOT EXISTS roles (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS permissions (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  resource TEXT NOT NULL,
  action TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS role_permissions (
  role_id TEXT NOT NULL,
  permission_id TEXT NOT NULL,
  created_at DATETIME,
  PRIMARY KEY (role_id, permission_id)
);`, `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  display_name TEXT NOT NULL,
  role_id TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  email_verified INTEGER NOT NULL DEFAULT 0,
  failed_login_attempts INTEGER NOT NULL DEFAULT 0,
  locked_until DATETIME,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:               "test-secret",
		Issuer:               "userforge-test",
		ExpirationMinutes:    15,
		ResetTokenTTLMinutes: 30,
	}
}

func setupAuthService(t *testing.T, maxAttempts int) (Service, *gorm.DB, *fakeSessions, *fakeResetStore, *fakeAuthNotifier) {
	t.Helper()

	db := setupAuthTestDB(t)
	require.NoError(t, rbac.Seed(context.Background(), rbac.NewRepository(db), nil))

	sessions := newFakeSessions()
	reset := &fakeResetStore{data: map[string]string{}}
	notifier := &fakeAuthNotifier{}

	svc, err := NewService(ServiceParams{
		Users:    users.NewRepository(db),
		Roles:    rbac.NewRepository(db),
		Sessions: sessions,
		Reset:    reset,
		JWT:      jwtTestConfig(),
		Password: config.PasswordConfig{},
		Lockout:  config.LockoutConfig{MaxFailedAttempts: maxAttempts, LockDuration: 15 * time.Minute},
		Notifier: notifier,
	})
	require.NoError(t, err)
	return svc, db, sessions, reset, notifier
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr, "expected a coded error, got %v", err)
	assert.Equal(t, code, appErr.Code())
}

func TestRegisterIssuesTokenPair(t *testing.T) {
	svc, _, _, _, notifier := setupAuthService(t, 5)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{
		Email:       " New.User@Example.COM ",
		Password:    "sup3r-secret",
		DisplayName: "New User",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", result.User.Email)
	assert.Equal(t, rbac.RoleUser, result.User.Role)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, 1, notifier.welcomes)

	claims, err := pkgauth.ParseAccessToken(jwtTestConfig(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, rbac.RoleUser, claims.Role)

	_, err = svc.Register(ctx, RegisterInput{
		Email:       "new.user@example.com",
		Password:    "sup3r-secret",
		DisplayName: "Duplicate",
	})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestLoginRejectsUnknownAndWrongCredentials(t *testing.T) {
	svc, _, _, _, _ := setupAuthService(t, 5)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "whatever"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Register(ctx, RegisterInput{Email: "sam@example.com", Password: "sup3r-secret", DisplayName: "Sam"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "sam@example.com", Password: "wrong"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	result, err := svc.Login(ctx, LoginInput{Email: "Sam@Example.com", Password: "sup3r-secret"})
	require.NoError(t, err)
	assert.NotNil(t, result.User.LastLoginAt)
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	svc, db, _, _, notifier := setupAuthService(t, 2)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Email: "kim@example.com", Password: "sup3r-secret", DisplayName: "Kim"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = svc.Login(ctx, LoginInput{Email: "kim@example.com", Password: "wrong"})
		expectCode(t, err, pkgerrors.CodeUnauthorized)
	}
	require.Len(t, notifier.lockedFor, 1)
	assert.Equal(t, registered.User.ID, notifier.lockedFor[0])

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "kim@example.com").Error)
	require.NotNil(t, user.LockedUntil)

	_, err = svc.Login(ctx, LoginInput{Email: "kim@example.com", Password: "sup3r-secret"})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestLoginRefusesDeactivatedAccount(t *testing.T) {
	svc, db, _, _, _ := setupAuthService(t, 5)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "off@example.com", Password: "sup3r-secret", DisplayName: "Off"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).
		Where("email = ?", "off@example.com").
		Update("is_active", false).Error)

	_, err = svc.Login(ctx, LoginInput{Email: "off@example.com", Password: "sup3r-secret"})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestRefreshRotatesAndInvalidatesOldSession(t *testing.T) {
	svc, _, _, _, _ := setupAuthService(t, 5)
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterInput{Email: "ro@example.com", Password: "sup3r-secret", DisplayName: "Ro"})
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, RefreshInput{AccessToken: first.AccessToken, RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)

	_, err = svc.Refresh(ctx, RefreshInput{AccessToken: first.AccessToken, RefreshToken: first.RefreshToken})
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Refresh(ctx, RefreshInput{AccessToken: "garbage", RefreshToken: second.RefreshToken})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLogoutEndsSession(t *testing.T) {
	svc, _, _, _, _ := setupAuthService(t, 5)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{Email: "out@example.com", Password: "sup3r-secret", DisplayName: "Out"})
	require.NoError(t, err)

	claims, err := pkgauth.ParseAccessToken(jwtTestConfig(), result.AccessToken)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, claims.ID))

	_, err = svc.Refresh(ctx, RefreshInput{AccessToken: result.AccessToken, RefreshToken: result.RefreshToken})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestPasswordResetTokenIsSingleUse(t *testing.T) {
	svc, _, _, _, notifier := setupAuthService(t, 5)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "rs@example.com", Password: "old-secret-1", DisplayName: "Rs"})
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(ctx, ResetRequestInput{Email: "rs@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	ghost, err := svc.RequestPasswordReset(ctx, ResetRequestInput{Email: "ghost@example.com"})
	require.NoError(t, err)
	assert.Empty(t, ghost, "unknown addresses must not be distinguishable")

	err = svc.ConfirmPasswordReset(ctx, ResetConfirmInput{Token: "bogus", NewPassword: "new-secret-1"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, ResetConfirmInput{Token: token, NewPassword: "new-secret-1"}))
	assert.Equal(t, 1, notifier.passwords)

	err = svc.ConfirmPasswordReset(ctx, ResetConfirmInput{Token: token, NewPassword: "other-secret"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(ctx, LoginInput{Email: "rs@example.com", Password: "old-secret-1"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
	_, err = svc.Login(ctx, LoginInput{Email: "rs@example.com", Password: "new-secret-1"})
	require.NoError(t, err)
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	svc, _, _, _, notifier := setupAuthService(t, 5)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{Email: "cp@example.com", Password: "old-secret-1", DisplayName: "Cp"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, result.User.ID, ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "new-secret-1"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	require.NoError(t, svc.ChangePassword(ctx, result.User.ID, ChangePasswordInput{
		CurrentPassword: "old-secret-1",
		NewPassword:     "new-secret-1",
	}))
	assert.Equal(t, 1, notifier.passwords)

	_, err = svc.Login(ctx, LoginInput{Email: "cp@example.com", Password: "new-secret-1"})
	require.NoError(t, err)
}
