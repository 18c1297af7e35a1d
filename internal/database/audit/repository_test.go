package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/rolegate/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	return db
}

func TestRepository_LogEvent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	event := &entities.AuditEvent{
		Action:   entities.AuditActionLogin,
		Username: "bob",
		Status:   entities.AuditStatusSuccess,
	}

	err := repo.LogEvent(event)
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_GetEvents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	for i := 0; i < 15; i++ {
		username := "bob"
		if i%3 == 0 {
			username = "alice"
		}
		event := &entities.AuditEvent{
			Action:    entities.AuditActionLogin,
			Username:  username,
			Status:    entities.AuditStatusSuccess,
			CreatedAt: now.Add(time.Duration(-i) * time.Hour),
		}
		require.NoError(t, repo.LogEvent(event))
	}
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{
		Action:    entities.AuditActionAccessDenied,
		Username:  "bob",
		Required:  "admin",
		Status:    entities.AuditStatusFailed,
		CreatedAt: now.Add(-30 * time.Minute),
	}))

	t.Run("first page", func(t *testing.T) {
		events, total, err := repo.GetEvents(Filter{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(16), total)
		assert.Len(t, events, 10)
		// Most recent first
		assert.True(t, events[0].CreatedAt.After(events[1].CreatedAt))
	})

	t.Run("second page", func(t *testing.T) {
		events, total, err := repo.GetEvents(Filter{Limit: 10, Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(16), total)
		assert.Len(t, events, 6)
	})

	t.Run("default limit", func(t *testing.T) {
		events, _, err := repo.GetEvents(Filter{Limit: -1, Offset: -5})
		require.NoError(t, err)
		assert.Len(t, events, 16)
	})

	t.Run("by username", func(t *testing.T) {
		events, total, err := repo.GetEvents(Filter{Username: "alice"})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		for _, e := range events {
			assert.Equal(t, "alice", e.Username)
		}
	})

	t.Run("by action", func(t *testing.T) {
		events, total, err := repo.GetEvents(Filter{Username: "bob", Action: entities.AuditActionAccessDenied})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, events, 1)
		assert.Equal(t, "admin", events[0].Required)
		assert.Equal(t, entities.AuditStatusFailed, events[0].Status)
	})
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	for _, age := range []time.Duration{time.Hour, 48 * time.Hour, 72 * time.Hour} {
		require.NoError(t, repo.LogEvent(&entities.AuditEvent{
			Action:    entities.AuditActionSignup,
			Username:  "carol",
			Status:    entities.AuditStatusSuccess,
			CreatedAt: now.Add(-age),
		}))
	}

	deleted, err := repo.DeleteOldEvents(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, total, err := repo.GetEvents(Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
