// Package tasks runs background maintenance jobs on a SQLite-backed
// backlite queue, enqueued on cron schedules.
package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Client wraps backlite to provide task queue functionality.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config

	mu      sync.RWMutex
	started bool
}

// DBPath returns the path of the task database kept alongside mainDBPath,
// e.g. "data/rolegate.db" gives "data/rolegate-tasks.db".
func DBPath(mainDBPath string) string {
	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, name+"-tasks"+ext)
}

// NewClient creates a new task queue client with a dedicated SQLite
// database next to the main one.
func NewClient(mainDBPath string, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	db, err := sql.Open("sqlite3", DBPath(mainDBPath)+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}

	// Configure connection pool for concurrent workers
	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          zerologAdapter{},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create backlite client: %w", err)
	}

	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install backlite schema: %w", err)
	}

	return &Client{
		client: client,
		db:     db,
		config: cfg,
	}, nil
}

// Register registers task queues with the client.
// Must be called before Start().
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start begins processing tasks. Use Stop() for graceful shutdown.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	log.Info().Int("workers", c.config.Workers).Msg("task queue started")
	c.client.Start(ctx)
}

// Stop gracefully shuts down the task queue, waiting for active tasks to complete.
// Returns true if all workers finished before the context deadline.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.RLock()
	started := c.started
	c.mu.RUnlock()
	if !started {
		return true
	}

	success := c.client.Stop(ctx)
	if success {
		log.Info().Msg("task queue stopped")
	} else {
		log.Warn().Msg("task queue stopped with timeout, some tasks may not have completed")
	}
	return success
}

// Close releases the task database. Should be called after Stop().
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Add starts an operation to enqueue one or more tasks.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

// Schedule enqueues task on the scheduler's cron spec, e.g. "@daily".
func (c *Client) Schedule(scheduler *cron.Cron, spec string, task backlite.Task) (cron.EntryID, error) {
	name := task.Config().Name
	return scheduler.AddFunc(spec, func() {
		if _, err := c.Add(task).Save(); err != nil {
			log.Error().Err(err).Str("queue", name).Msg("failed to enqueue scheduled task")
		}
	})
}

// zerologAdapter implements backlite.Logger on the global zerolog logger.
type zerologAdapter struct{}

func (zerologAdapter) Info(message string, params ...any) {
	log.Debug().Fields(params).Msg(message)
}

func (zerologAdapter) Error(message string, params ...any) {
	log.Error().Fields(params).Msg(message)
}
