package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeAPIKey  AuthMode = "apikey"  // Static API keys in the Authorization header
	AuthModeSession AuthMode = "session" // Signup/login with a signed session cookie
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Auth
		Audit
		Tasks
		Log
	}

	HTTP struct {
		Port int32
		Host string
		// Proxy IPs or CIDRs whose X-Forwarded-For is believed. Empty
		// means the socket address is always the client IP.
		TrustedProxies []string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string // Empty means the in-memory store
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Audit struct {
		Enabled   bool          // Requires DATABASE_PATH
		Retention time.Duration // Events older than this are pruned
		Cleanup   string        // Cron spec for pruning
	}
	Tasks struct {
		Workers         int
		ReleaseAfter    time.Duration // Stuck tasks return to the queue after this
		CleanupInterval time.Duration // How often finished tasks are purged
	}
	Log struct {
		Level  string
		Format string // "console" or "json"
	}
	Auth struct {
		Mode AuthMode

		// Session mode
		SessionSecret     string
		SessionTTL        time.Duration
		CookieName        string
		SecureCookies     bool // Set to false for local dev without HTTPS
		CSRFEnabled       bool
		BcryptCost        int
		MinPasswordLength int
		Roles             []string // Roles accepted at signup

		// API key mode
		StaticTokens        string        // "token:user:role,...", token may contain ":"
		StaticTokenLifetime time.Duration // 0 means keys never expire

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
		RateLimitCleanup string        // Cron spec for purging stale attempt records
	}
)

// DefaultStaticTokens mirrors the demo user table shipped with the API key service.
const DefaultStaticTokens = "alice-token:alice:admin,bob-token:bob:user,carol-token:carol:editor,john-token:john:viewer"

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", "")
	v.SetDefault("templates_path", "") // Built-in templates if empty
	v.SetDefault("static_path", "")    // Built-in assets if empty
	v.SetDefault("http_trusted_proxies", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	// Auth defaults
	v.SetDefault("auth_mode", string(AuthModeAPIKey))
	v.SetDefault("auth_session_secret", "") // Auto-generated if empty
	v.SetDefault("auth_session_ttl", "30m")
	v.SetDefault("auth_cookie_name", "access_token")
	v.SetDefault("auth_secure_cookies", false)
	v.SetDefault("auth_csrf_enabled", true)
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_min_password_length", 1)
	v.SetDefault("auth_roles", "admin,editor,viewer,user")
	v.SetDefault("auth_static_tokens", DefaultStaticTokens)
	v.SetDefault("auth_static_token_lifetime", "0s")
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")
	v.SetDefault("auth_rate_limit_cleanup", "@every 5m")

	// Audit trail defaults
	v.SetDefault("audit_enabled", true)
	v.SetDefault("audit_retention", "720h")
	v.SetDefault("audit_cleanup", "@daily")

	// Task queue defaults
	v.SetDefault("tasks_workers", 1)
	v.SetDefault("tasks_release_after", "15m")
	v.SetDefault("tasks_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),

			TrustedProxies: splitList(v.GetString("HTTP_TRUSTED_PROXIES")),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Audit: Audit{
			Enabled:   v.GetBool("AUDIT_ENABLED"),
			Retention: v.GetDuration("AUDIT_RETENTION"),
			Cleanup:   v.GetString("AUDIT_CLEANUP"),
		},
		Tasks: Tasks{
			Workers:         v.GetInt("TASKS_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASKS_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASKS_CLEANUP_INTERVAL"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Auth: Auth{
			Mode:                AuthMode(strings.ToLower(v.GetString("AUTH_MODE"))),
			SessionSecret:       v.GetString("AUTH_SESSION_SECRET"),
			SessionTTL:          v.GetDuration("AUTH_SESSION_TTL"),
			CookieName:          v.GetString("AUTH_COOKIE_NAME"),
			SecureCookies:       v.GetBool("AUTH_SECURE_COOKIES"),
			CSRFEnabled:         v.GetBool("AUTH_CSRF_ENABLED"),
			BcryptCost:          v.GetInt("AUTH_BCRYPT_COST"),
			MinPasswordLength:   v.GetInt("AUTH_MIN_PASSWORD_LENGTH"),
			Roles:               splitList(v.GetString("AUTH_ROLES")),
			StaticTokens:        v.GetString("AUTH_STATIC_TOKENS"),
			StaticTokenLifetime: v.GetDuration("AUTH_STATIC_TOKEN_LIFETIME"),
			MaxLoginAttempts:    v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:     v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:     v.GetDuration("AUTH_LOCKOUT_DURATION"),
			RateLimitCleanup:    v.GetString("AUTH_RATE_LIMIT_CLEANUP"),
		},
	}
}

// Validate reports configuration that would make the server misbehave.
func (c *Config) Validate() error {
	var errs []error

	switch c.Auth.Mode {
	case AuthModeAPIKey, AuthModeSession:
	default:
		errs = append(errs, fmt.Errorf("unknown auth mode %q (want %q or %q)", c.Auth.Mode, AuthModeAPIKey, AuthModeSession))
	}

	if c.Auth.Mode == AuthModeSession {
		if c.Auth.SessionTTL <= 0 {
			errs = append(errs, errors.New("session ttl must be positive"))
		}
		// bcrypt.MinCost and bcrypt.MaxCost
		if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
			errs = append(errs, fmt.Errorf("bcrypt cost %d out of range [4, 31]", c.Auth.BcryptCost))
		}
		if c.Auth.CookieName == "" {
			errs = append(errs, errors.New("cookie name is required"))
		}
		if len(c.Auth.Roles) == 0 {
			errs = append(errs, errors.New("at least one role is required"))
		}
	}

	for _, proxy := range c.HTTP.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			errs = append(errs, fmt.Errorf("trusted proxy %q is not an IP or CIDR", proxy))
		}
	}

	if c.Auth.StaticTokenLifetime < 0 {
		errs = append(errs, errors.New("static token lifetime must not be negative"))
	}

	if c.Audit.Enabled && (c.Audit.Retention < 0 || (c.Audit.Retention > 0 && c.Audit.Retention < time.Hour)) {
		errs = append(errs, fmt.Errorf("audit retention %s must be 0 (keep forever) or at least 1h", c.Audit.Retention))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
