package users

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/rolegate/internal/auth"
	"github.com/mrlokans/rolegate/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "users.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entities.User{}))

	return NewRepository(db)
}

func strPtr(s string) *string { return &s }

func TestRepository_CreateAndLookup(t *testing.T) {
	repo := setupTestDB(t)

	user, err := repo.Create(&entities.User{
		Username: "alice",
		Role:     entities.UserRoleAdmin,
		Token:    strPtr("alice-token"),
	})
	require.NoError(t, err)
	assert.Len(t, user.ID, 36)
	assert.NotNil(t, user.TokenIssuedAt)

	byToken, err := repo.LookupByToken("alice-token")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byToken.ID)
	assert.Equal(t, entities.UserRoleAdmin, byToken.Role)

	byName, err := repo.LookupByIdentity("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice-token", *byName.Token)
}

func TestRepository_LookupMissing(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.LookupByToken("missing")
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	_, err = repo.LookupByToken("")
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	_, err = repo.LookupByIdentity("nobody")
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)
}

func TestRepository_Duplicates(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Create(&entities.User{Username: "bob", Role: entities.UserRoleUser, PasswordHash: "h1"})
	require.NoError(t, err)

	_, err = repo.Create(&entities.User{Username: "bob", Role: entities.UserRoleAdmin, PasswordHash: "h2"})
	assert.ErrorIs(t, err, auth.ErrDuplicateIdentity)

	_, err = repo.Create(&entities.User{Username: "carol", Token: strPtr("t1")})
	require.NoError(t, err)
	_, err = repo.Create(&entities.User{Username: "dave", Token: strPtr("t1")})
	assert.ErrorIs(t, err, auth.ErrDuplicateIdentity)

	bob, err := repo.LookupByIdentity("bob")
	require.NoError(t, err)
	assert.Equal(t, "h1", bob.PasswordHash)
	assert.Equal(t, entities.UserRoleUser, bob.Role)

	all, err := repo.ListUsers()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRepository_PasswordUsersWithoutTokens(t *testing.T) {
	repo := setupTestDB(t)

	// NULL tokens do not collide on the unique index
	for _, name := range []string{"a", "b", "c"} {
		_, err := repo.Create(&entities.User{Username: name, PasswordHash: "h"})
		require.NoError(t, err)
	}
}

func TestRepository_ConcurrentCreate(t *testing.T) {
	repo := setupTestDB(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(&entities.User{Username: "racer", PasswordHash: "h"})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, auth.ErrDuplicateIdentity)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestRepository_WorksWithService(t *testing.T) {
	repo := setupTestDB(t)

	_, err := auth.SeedTokens(repo, []auth.StaticToken{
		{Token: "john-token", Username: "john", Role: entities.UserRoleViewer},
	})
	require.NoError(t, err)

	v := auth.NewTokenVerifier(repo, 0, nil)
	user, err := v.VerifyToken("john-token")
	require.NoError(t, err)
	assert.Equal(t, "john", user.Username)
	assert.Equal(t, entities.UserRoleViewer, user.Role)
}
