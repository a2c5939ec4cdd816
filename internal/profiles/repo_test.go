package profiles

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
	"github.com/userforge/userforge-backend/pkg/query"
)

func setupProfilesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	profiles := `
CREATE TABLE IF NOT EXISTS user_profiles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  bio TEXT,
  phone TEXT,
  location TEXT,
  company TEXT,
  job_title TEXT,
  website TEXT,
  avatar_url TEXT,
  birth_year INTEGER,
  is_public INTEGER NOT NULL DEFAULT 1,
  show_email INTEGER NOT NULL DEFAULT 0,
  show_phone INTEGER NOT NULL DEFAULT 0,
  address TEXT,
  preferences TEXT,
  social_links TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(profiles).Error)

	// Listings join through users to reach the owner's role.
	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS roles (
  id TEXT PRIMARY KEY, name TEXT NOT NULL UNIQUE, description TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1, created_at DATETIME, updated_at DATETIME
);`).Error)
	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  role_id TEXT NOT NULL
);`).Error)
	return db
}

func profileRoleID(t *testing.T, db *gorm.DB, name string) string {
	t.Helper()
	var id string
	require.NoError(t, db.Raw("SELECT id FROM roles WHERE name = ?", name).Scan(&id).Error)
	if id == "" {
		id = uuid.NewString()
		require.NoError(t, db.Exec("INSERT INTO roles (id, name) VALUES (?, ?)", id, name).Error)
	}
	return id
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func createProfile(t *testing.T, db *gorm.DB, mutate ...func(*models.UserProfile)) models.UserProfile {
	return createProfileWithRole(t, db, "user", mutate...)
}

func createProfileWithRole(t *testing.T, db *gorm.DB, role string, mutate ...func(*models.UserProfile)) models.UserProfile {
	t.Helper()
	profile := models.UserProfile{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		IsPublic: true,
	}
	for _, fn := range mutate {
		fn(&profile)
	}
	require.NoError(t, db.Create(&profile).Error)
	require.NoError(t, db.Exec("INSERT INTO users (id, role_id) VALUES (?, ?)",
		profile.UserID, profileRoleID(t, db, role)).Error)
	return profile
}

func profileParams(raw string) query.Params {
	values, _ := url.ParseQuery(raw)
	return query.ParseParams(values, listOptions())
}

func TestUpsertRoundTrip(t *testing.T) {
	db := setupProfilesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := createProfile(t, db, func(p *models.UserProfile) {
		p.Bio = strptr("hello")
	})

	loaded, err := repo.FindByUserID(ctx, created.UserID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Bio)
	assert.Equal(t, "hello", *loaded.Bio)

	loaded.Company = strptr("Initech")
	require.NoError(t, repo.Save(ctx, loaded))

	loaded, err = repo.FindByUserID(ctx, created.UserID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Company)
	assert.Equal(t, "Initech", *loaded.Company)

	require.NoError(t, repo.DeleteByUserID(ctx, created.UserID))
	_, err = repo.FindByUserID(ctx, created.UserID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListFiltersByLocationAndVisibility(t *testing.T) {
	db := setupProfilesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	createProfile(t, db, func(p *models.UserProfile) {
		p.Location = strptr("Lisbon, Portugal")
	})
	createProfile(t, db, func(p *models.UserProfile) {
		p.Location = strptr("Berlin, Germany")
		p.IsPublic = false
	})

	page, err := repo.List(ctx, profileParams("location=lisbon"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.Total)

	page, err = repo.List(ctx, profileParams("isPublic=false"))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.NotNil(t, page.Data[0].Location)
	assert.Contains(t, *page.Data[0].Location, "Berlin")
}

func TestListAgeRangeMapsToBirthYears(t *testing.T) {
	db := setupProfilesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	year := time.Now().UTC().Year()

	createProfile(t, db, func(p *models.UserProfile) { p.BirthYear = intptr(year - 30) })
	createProfile(t, db, func(p *models.UserProfile) { p.BirthYear = intptr(year - 50) })
	createProfile(t, db, func(p *models.UserProfile) { p.BirthYear = intptr(year - 20) })

	page, err := repo.List(ctx, profileParams("ageFrom=25&ageTo=40"))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, year-30, *page.Data[0].BirthYear)
}

func TestListPresenceFilters(t *testing.T) {
	db := setupProfilesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	createProfile(t, db, func(p *models.UserProfile) {
		p.AvatarURL = strptr("https://cdn.example.com/a.png")
	})
	createProfile(t, db)

	page, err := repo.List(ctx, profileParams("hasAvatar=true"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.Total)

	page, err = repo.List(ctx, profileParams("hasAvatar=false"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.Total)
}

func TestListFiltersByOwnerRole(t *testing.T) {
	db := setupProfilesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	createProfileWithRole(t, db, "moderator", func(p *models.UserProfile) {
		p.Location = strptr("Porto")
	})
	createProfile(t, db)
	createProfile(t, db)

	page, err := repo.List(ctx, profileParams("role=moderator"))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.NotNil(t, page.Data[0].Location)
	assert.Equal(t, "Porto", *page.Data[0].Location)

	page, err = repo.List(ctx, profileParams("roles=moderator&roles=user"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Pagination.Total)
}

func TestListArrayFormWinsOverScalar(t *testing.T) {
	db := setupProfilesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	createProfile(t, db, func(p *models.UserProfile) { p.Location = strptr("Lisbon") })
	createProfile(t, db, func(p *models.UserProfile) { p.Location = strptr("Berlin") })
	createProfile(t, db, func(p *models.UserProfile) { p.Location = strptr("Madrid") })

	page, err := repo.List(ctx, profileParams("location=Madrid&locations=Lisbon&locations=Berlin"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Pagination.Total)
}

func TestListCompletenessFilter(t *testing.T) {
	db := setupProfilesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	full := createProfile(t, db, func(p *models.UserProfile) {
		p.Bio = strptr("hi")
		p.Location = strptr("Lisbon")
		p.AvatarURL = strptr("https://cdn.example.com/a.png")
	})
	createProfile(t, db, func(p *models.UserProfile) {
		p.Bio = strptr("no avatar yet")
	})

	page, err := repo.List(ctx, profileParams("isComplete=true"))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, full.ID, page.Data[0].ID)

	page, err = repo.List(ctx, profileParams("isComplete=false"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.Total)
}
