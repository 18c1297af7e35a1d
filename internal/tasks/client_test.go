package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	client, err := NewClient(dbPath, Config{Workers: 1})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "rolegate-tasks.db"), DBPath(filepath.Join("data", "rolegate.db")))
	assert.Equal(t, "rolegate-tasks", DBPath("rolegate"))
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	client, err := NewClient(dbPath, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = os.Stat(filepath.Join(tmpDir, "test-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")

	assert.NoError(t, client.Close())
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Start(ctx)

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

func TestClientStopWithoutStart(t *testing.T) {
	client := newTestClient(t)
	assert.True(t, client.Stop(context.Background()))
}

type fakeCleaner struct {
	calls chan time.Duration
	err   error
}

func (f *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.calls <- retention
	return 3, f.err
}

func TestCleanupAuditEventsTask_Enqueue(t *testing.T) {
	client := newTestClient(t)
	cleaner := &fakeCleaner{calls: make(chan time.Duration, 1)}
	client.Register(NewCleanupAuditEventsQueue(cleaner))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	ids, err := client.Add(NewCleanupAuditEventsTask(48 * time.Hour)).Save()
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	select {
	case got := <-cleaner.calls:
		assert.Equal(t, 48*time.Hour, got)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	t.Run("default retention", func(t *testing.T) {
		cleaner := &fakeCleaner{calls: make(chan time.Duration, 1)}
		err := CleanupAuditEventsProcessor(cleaner)(context.Background(), CleanupAuditEventsTask{})
		require.NoError(t, err)
		assert.Equal(t, 30*24*time.Hour, <-cleaner.calls)
	})

	t.Run("cleaner error", func(t *testing.T) {
		cleaner := &fakeCleaner{calls: make(chan time.Duration, 1), err: errors.New("database is locked")}
		err := CleanupAuditEventsProcessor(cleaner)(context.Background(), CleanupAuditEventsTask{RetentionHours: 1})
		assert.ErrorContains(t, err, "database is locked")
	})

	t.Run("no cleaner", func(t *testing.T) {
		err := CleanupAuditEventsProcessor(nil)(context.Background(), CleanupAuditEventsTask{})
		assert.Error(t, err)
	})
}

func TestCleanupAuditEventsTaskConfig(t *testing.T) {
	task := NewCleanupAuditEventsTask(90 * time.Minute)
	assert.Equal(t, 1, task.RetentionHours)

	cfg := task.Config()
	assert.Equal(t, "cleanup_audit_events", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestClientSchedule(t *testing.T) {
	client := newTestClient(t)
	scheduler := cron.New()

	_, err := client.Schedule(scheduler, "@daily", NewCleanupAuditEventsTask(time.Hour))
	require.NoError(t, err)
	assert.Len(t, scheduler.Entries(), 1)

	_, err = client.Schedule(scheduler, "whenever", NewCleanupAuditEventsTask(time.Hour))
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)

	assert.Equal(t, cfg, Config{}.withDefaults())
}

var _ backlite.Task = CleanupAuditEventsTask{}
