package logs

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/userforge/userforge-backend/internal/rbac"
	"github.com/userforge/userforge-backend/pkg/config"
	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/enums"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
)

func setupLogsService(t *testing.T, retentionDays int) (Service, Repository, *gorm.DB) {
	t.Helper()

	db := setupLogsTestDB(t)

	roles := `
CREATE TABLE IF NOT EXISTS roles (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	permissions := `
CREATE TABLE IF NOT EXISTS permissions (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  resource TEXT NOT NULL,
  action TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`
	rolePermissions := `
CREATE TABLE IF NOT EXISTS role_permissions (
  role_id TEXT NOT NULL,
  permission_id TEXT NOT NULL,
  created_at DATETIME,
  PRIMARY KEY (role_id, permission_id)
);`
	for _, stmt := range []string{roles, permissions, rolePermissions} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	rbacRepo := rbac.NewRepository(db)
	require.NoError(t, rbac.Seed(context.Background(), rbacRepo, nil))

	graph, err := rbac.NewGraph(rbacRepo)
	require.NoError(t, err)
	guard, err := rbac.NewGuard(graph)
	require.NoError(t, err)

	repo := NewRepository(db)
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Guard:  guard,
		Config: config.LogsConfig{RetentionDays: retentionDays},
	})
	require.NoError(t, err)
	return svc, repo, db
}

func admin() rbac.Caller {
	return rbac.Caller{ID: uuid.New(), Role: rbac.RoleAdmin, Active: true}
}

func moderator() rbac.Caller {
	return rbac.Caller{ID: uuid.New(), Role: rbac.RoleModerator, Active: true}
}

func member() rbac.Caller {
	return rbac.Caller{ID: uuid.New(), Role: rbac.RoleUser, Active: true}
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr, "expected a coded error, got %v", err)
	assert.Equal(t, code, appErr.Code())
}

func TestListRequiresLogsGrant(t *testing.T) {
	svc, _, db := setupLogsService(t, 90)
	createEntry(t, db)

	_, err := svc.List(context.Background(), member(), url.Values{})
	expectCode(t, err, pkgerrors.CodeForbidden)

	page, err := svc.List(context.Background(), moderator(), url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.Total)
}

func TestGetAllowsSubjectThroughOwnership(t *testing.T) {
	svc, _, db := setupLogsService(t, 90)
	subject := member()
	own := createEntry(t, db, func(e *models.LogEntry) { e.UserID = &subject.ID })
	anonymous := createEntry(t, db)

	got, err := svc.Get(context.Background(), subject, own.ID)
	require.NoError(t, err)
	assert.Equal(t, own.ID, got.ID)

	_, err = svc.Get(context.Background(), subject, anonymous.ID)
	expectCode(t, err, pkgerrors.CodeForbidden)

	_, err = svc.Get(context.Background(), moderator(), anonymous.ID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), moderator(), uuid.New())
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestPurgeRequiresDeleteGrant(t *testing.T) {
	svc, _, db := setupLogsService(t, 90)
	entry := createEntry(t, db)
	stale := time.Now().AddDate(0, 0, -30).UTC()
	require.NoError(t, db.Model(&models.LogEntry{}).
		Where("id = ?", entry.ID).
		Update("created_at", stale).Error)

	_, err := svc.Purge(context.Background(), moderator(), time.Now().UTC())
	expectCode(t, err, pkgerrors.CodeForbidden)

	removed, err := svc.Purge(context.Background(), admin(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestDeleteExpiredHonorsRetentionWindow(t *testing.T) {
	svc, repo, db := setupLogsService(t, 30)
	expired := createEntry(t, db)
	stale := time.Now().AddDate(0, 0, -45).UTC()
	require.NoError(t, db.Model(&models.LogEntry{}).
		Where("id = ?", expired.ID).
		Update("created_at", stale).Error)
	fresh := createEntry(t, db)

	removed, err := svc.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.FindByID(context.Background(), fresh.ID)
	require.NoError(t, err)
}

func TestRecorderNeverFailsTheRequest(t *testing.T) {
	db := setupLogsTestDB(t)
	repo := NewRepository(db)
	subject := uuid.New()

	recorder := NewRecorder(repo, nil)
	recorder.Record(context.Background(), Entry{
		UserID:     &subject,
		Action:     "users.update",
		Resource:   "users",
		Method:     "PATCH",
		Path:       "/api/users/" + subject.String(),
		StatusCode: 409,
		Duration:   42 * time.Millisecond,
		Err:        errors.New("cannot demote the last active admin"),
		Metadata:   map[string]any{"target": subject.String()},
	})

	page, err := repo.List(context.Background(), logParams(""))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	entry := page.Data[0]
	assert.Equal(t, enums.LogLevelWarn, entry.Level)
	assert.Equal(t, int64(42), entry.DurationMs)
	require.NotNil(t, entry.Error)
	assert.Contains(t, *entry.Error, "last active admin")
	require.NotNil(t, entry.Metadata)
	assert.Contains(t, *entry.Metadata, subject.String())

	broken := NewRecorder(NewRepository(db), nil)
	require.NoError(t, db.Exec("DROP TABLE log_entries").Error)
	broken.Record(context.Background(), Entry{Action: "x", Resource: "x", Method: "GET", Path: "/", StatusCode: 200})
}
