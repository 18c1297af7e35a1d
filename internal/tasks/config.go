package tasks

import "time"

// Config holds configuration for the task queue system.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 1
	Workers int

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed tasks. Default: 1h
	CleanupInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         1,
		ReleaseAfter:    15 * time.Minute,
		CleanupInterval: 1 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.ReleaseAfter <= 0 {
		c.ReleaseAfter = def.ReleaseAfter
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	return c
}
