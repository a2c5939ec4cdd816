package logs

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/userforge/userforge-backend/pkg/db/models"
	"github.com/userforge/userforge-backend/pkg/enums"
	"github.com/userforge/userforge-backend/pkg/query"
)

func setupLogsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	entries := `
CREATE TABLE IF NOT EXISTS log_entries (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  action TEXT NOT NULL,
  resource TEXT NOT NULL,
  method TEXT NOT NULL,
  path TEXT NOT NULL,
  status_code INTEGER NOT NULL,
  level TEXT NOT NULL,
  user_agent TEXT NOT NULL DEFAULT '',
  ip TEXT NOT NULL DEFAULT '',
  duration_ms INTEGER NOT NULL DEFAULT 0,
  error TEXT,
  metadata TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(entries).Error)
	return db
}

func createEntry(t *testing.T, db *gorm.DB, mutate ...func(*models.LogEntry)) models.LogEntry {
	t.Helper()
	entry := models.LogEntry{
		ID:         uuid.New(),
		Action:     "users.list",
		Resource:   "users",
		Method:     "GET",
		Path:       "/api/users",
		StatusCode: 200,
		Level:      enums.LogLevelInfo,
		DurationMs: 12,
	}
	for _, fn := range mutate {
		fn(&entry)
	}
	require.NoError(t, db.Create(&entry).Error)
	return entry
}

func logParams(raw string) query.Params {
	values, _ := url.ParseQuery(raw)
	return query.ParseParams(values, listOptions())
}

func TestListFiltersByLevelAndStatus(t *testing.T) {
	db := setupLogsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	createEntry(t, db)
	createEntry(t, db, func(e *models.LogEntry) {
		e.StatusCode = 404
		e.Level = enums.LogLevelWarn
	})
	createEntry(t, db, func(e *models.LogEntry) {
		e.StatusCode = 500
		e.Level = enums.LogLevelError
		message := "boom"
		e.Error = &message
	})

	page, err := repo.List(ctx, logParams("level=error"))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, 500, page.Data[0].StatusCode)

	page, err = repo.List(ctx, logParams(`levels=["warn","error"]`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Pagination.Total)

	page, err = repo.List(ctx, logParams("statusFrom=400&statusTo=499"))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, 404, page.Data[0].StatusCode)

	page, err = repo.List(ctx, logParams("hasError=true"))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.NotNil(t, page.Data[0].Error)
}

func TestListFiltersBySubjectAndPath(t *testing.T) {
	db := setupLogsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	subject := uuid.New()
	createEntry(t, db, func(e *models.LogEntry) {
		e.UserID = &subject
		e.Path = "/api/users/" + subject.String()
	})
	createEntry(t, db, func(e *models.LogEntry) {
		e.Path = "/api/profiles"
		e.Action = "profiles.list"
		e.Resource = "profiles"
	})

	page, err := repo.List(ctx, logParams("userId="+subject.String()))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	page, err = repo.List(ctx, logParams("path=profiles"))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "/api/profiles", page.Data[0].Path)

	page, err = repo.List(ctx, logParams("search=PROFILES"))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
}

func TestDeleteOlderThan(t *testing.T) {
	db := setupLogsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	old := createEntry(t, db)
	stale := time.Now().AddDate(0, 0, -120).UTC()
	require.NoError(t, db.Model(&models.LogEntry{}).
		Where("id = ?", old.ID).
		Update("created_at", stale).Error)
	fresh := createEntry(t, db)

	removed, err := repo.DeleteOlderThan(ctx, time.Now().AddDate(0, 0, -90).UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	_, err = repo.FindByID(ctx, old.ID)
	assert.Error(t, err)
}
