package auth

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/thejerf/abtime"
)

// RateLimiter throttles failed logins per IP+username combination.
type RateLimiter struct {
	mu              sync.RWMutex
	attempts        map[string]*attemptRecord
	maxAttempts     int
	windowDuration  time.Duration
	lockoutDuration time.Duration
	clock           abtime.AbstractTime
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// RateLimitConfig contains configuration for the rate limiter.
type RateLimitConfig struct {
	MaxAttempts     int           // Maximum attempts before lockout (default: 5)
	WindowDuration  time.Duration // Time window for counting attempts (default: 15m)
	LockoutDuration time.Duration // How long to lock out after max attempts (default: 30m)
}

// NewRateLimiter creates a new rate limiter with the given configuration.
// Stale records are only purged by Cleanup; see ScheduleCleanup.
func NewRateLimiter(cfg RateLimitConfig, clock abtime.AbstractTime) *RateLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = 15 * time.Minute
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	if clock == nil {
		clock = abtime.NewRealTime()
	}

	return &RateLimiter{
		attempts:        make(map[string]*attemptRecord),
		maxAttempts:     cfg.MaxAttempts,
		windowDuration:  cfg.WindowDuration,
		lockoutDuration: cfg.LockoutDuration,
		clock:           clock,
	}
}

func (rl *RateLimiter) makeKey(ip, username string) string {
	return ip + ":" + username
}

// Allow checks if a login attempt should be allowed.
// If not, retryAfter indicates when the lockout expires.
func (rl *RateLimiter) Allow(ip, username string) (bool, time.Duration) {
	key := rl.makeKey(ip, username)
	now := rl.clock.Now()

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	record, exists := rl.attempts[key]
	if !exists {
		return true, 0
	}

	if !record.lockedUntil.IsZero() && now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}

	if now.Sub(record.firstAttempt) > rl.windowDuration {
		return true, 0
	}

	if record.count < rl.maxAttempts {
		return true, 0
	}

	return false, rl.lockoutDuration
}

// RecordFailure records a failed login attempt and reports whether the
// caller is now locked out.
func (rl *RateLimiter) RecordFailure(ip, username string) (bool, time.Duration) {
	key := rl.makeKey(ip, username)
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, exists := rl.attempts[key]
	if !exists {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[key] = record
	}

	// Reset if window expired
	if now.Sub(record.firstAttempt) > rl.windowDuration {
		record.count = 0
		record.firstAttempt = now
		record.lockedUntil = time.Time{}
	}

	record.count++

	if record.count >= rl.maxAttempts {
		record.lockedUntil = now.Add(rl.lockoutDuration)
		return true, rl.lockoutDuration
	}

	return false, 0
}

// RecordSuccess clears the failure record for a successful login.
func (rl *RateLimiter) RecordSuccess(ip, username string) {
	key := rl.makeKey(ip, username)

	rl.mu.Lock()
	delete(rl.attempts, key)
	rl.mu.Unlock()
}

// Cleanup removes records whose window and lockout have both passed.
func (rl *RateLimiter) Cleanup() int {
	now := rl.clock.Now()
	expiry := rl.windowDuration + rl.lockoutDuration

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, record := range rl.attempts {
		windowExpired := now.Sub(record.firstAttempt) > expiry
		lockoutExpired := record.lockedUntil.IsZero() || now.After(record.lockedUntil)

		if windowExpired && lockoutExpired {
			delete(rl.attempts, key)
			removed++
		}
	}
	return removed
}

// Tracked returns the number of IP+username pairs currently tracked.
func (rl *RateLimiter) Tracked() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.attempts)
}

// ScheduleCleanup registers Cleanup on the scheduler using a cron spec
// such as "@every 5m".
func (rl *RateLimiter) ScheduleCleanup(scheduler *cron.Cron, spec string) (cron.EntryID, error) {
	return scheduler.AddFunc(spec, func() {
		if removed := rl.Cleanup(); removed > 0 {
			log.Debug().Int("removed", removed).Msg("purged stale login attempt records")
		}
	})
}

// retryAfterSeconds formats d as the delay-seconds form of Retry-After,
// rounded up so a client never retries before the lockout ends.
func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// RateLimitMiddleware rejects POSTs from callers that are locked out.
// It should be applied only to the login route.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		username := c.PostForm("username")
		if username == "" {
			c.Next()
			return
		}

		allowed, retryAfter := rl.Allow(c.ClientIP(), username)
		if !allowed {
			log.Warn().Str("ip", c.ClientIP()).Str("user", username).Msg("login throttled")
			c.Header("Retry-After", retryAfterSeconds(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Detail: "Too many login attempts. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
