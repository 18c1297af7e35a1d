package entrypoint

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/thejerf/abtime"

	"github.com/mrlokans/rolegate/internal/audit"
	"github.com/mrlokans/rolegate/internal/auth"
	"github.com/mrlokans/rolegate/internal/config"
	"github.com/mrlokans/rolegate/internal/database"
	auditRepo "github.com/mrlokans/rolegate/internal/database/audit"
	"github.com/mrlokans/rolegate/internal/database/users"
	http_controllers "github.com/mrlokans/rolegate/internal/http"
	"github.com/mrlokans/rolegate/internal/tasks"
	"github.com/mrlokans/rolegate/internal/web"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App is a fully wired server, ready to Serve.
type App struct {
	Router    *gin.Engine
	Service   *auth.Service
	Database  *database.Database // nil with the in-memory store
	Audit     *audit.Service     // nil unless auditing is enabled with a database
	Tasks     *tasks.Client      // nil unless audit pruning is scheduled
	Scheduler *cron.Cron

	cancelTasks context.CancelFunc
}

// Start launches the task workers and the cron scheduler.
func (a *App) Start() {
	if a.Tasks != nil && a.cancelTasks == nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.cancelTasks = cancel
		go a.Tasks.Start(ctx)
	}
	if a.Scheduler != nil {
		a.Scheduler.Start()
	}
}

// Close stops background jobs, flushes pending audit events and releases
// the databases.
func (a *App) Close(ctx context.Context) {
	if a.Scheduler != nil {
		select {
		case <-a.Scheduler.Stop().Done():
		case <-ctx.Done():
		}
	}
	if a.Tasks != nil {
		a.Tasks.Stop(ctx)
		if a.cancelTasks != nil {
			a.cancelTasks()
		}
		if err := a.Tasks.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close task database")
		}
		a.Tasks = nil
	}
	if a.Audit != nil {
		a.Audit.Wait()
	}
	if a.Database != nil {
		if err := a.Database.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
}

// Build wires store, verifiers, session issuer and router for cfg. clock
// may be nil for real time.
func Build(cfg *config.Config, version string, clock abtime.AbstractTime) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if clock == nil {
		clock = abtime.NewRealTime()
	}

	app := &App{}

	var store auth.Store
	if cfg.Database.Path != "" {
		db, err := database.NewDatabase(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		app.Database = db
		store = users.NewRepository(db.DB)
	} else {
		log.Info().Msg("using in-memory credential store, records are lost on restart")
		store = auth.NewMemoryStore()
	}

	var (
		issuer     *auth.SessionIssuer
		flash      *auth.FlashManager
		limiter    *auth.RateLimiter
		csrfSecret []byte
	)

	switch cfg.Auth.Mode {
	case config.AuthModeAPIKey:
		tokens, err := auth.ParseStaticTokens(cfg.Auth.StaticTokens)
		if err != nil {
			app.Close(context.Background())
			return nil, fmt.Errorf("invalid static tokens: %w", err)
		}
		created, err := auth.SeedTokens(store, tokens)
		if err != nil {
			app.Close(context.Background())
			return nil, fmt.Errorf("failed to seed static tokens: %w", err)
		}
		log.Info().Int("seeded", created).Int("configured", len(tokens)).Msg("static tokens loaded")

	case config.AuthModeSession:
		secret, err := sessionSecret(cfg.Auth.SessionSecret)
		if err != nil {
			app.Close(context.Background())
			return nil, err
		}
		issuer, err = auth.NewSessionIssuer(secret, cfg.Auth.SessionTTL, clock)
		if err != nil {
			app.Close(context.Background())
			return nil, err
		}

		if cfg.Auth.CSRFEnabled {
			csrfSecret = deriveKey(secret, "csrf")
		}

		flash, err = auth.NewFlashManager(app.sqlDB(), cfg.Auth)
		if err != nil {
			app.Close(context.Background())
			return nil, fmt.Errorf("failed to create flash store: %w", err)
		}

		limiter = auth.NewRateLimiter(auth.RateLimitConfig{
			MaxAttempts:     cfg.Auth.MaxLoginAttempts,
			WindowDuration:  cfg.Auth.RateLimitWindow,
			LockoutDuration: cfg.Auth.LockoutDuration,
		}, clock)
		if cfg.Auth.RateLimitCleanup != "" {
			app.Scheduler = cron.New()
			if _, err := limiter.ScheduleCleanup(app.Scheduler, cfg.Auth.RateLimitCleanup); err != nil {
				app.Close(context.Background())
				return nil, fmt.Errorf("invalid rate limit cleanup schedule %q: %w", cfg.Auth.RateLimitCleanup, err)
			}
		}
	}

	service := auth.NewService(store, issuer, cfg.Auth, clock)
	app.Service = service

	if err := app.setupAudit(cfg, clock); err != nil {
		app.Close(context.Background())
		return nil, err
	}
	var auditReader http_controllers.AuditReader
	if app.Audit != nil {
		service.SetEventRecorder(app.Audit)
		auditReader = app.Audit
	}

	app.Router = http_controllers.NewRouter(http_controllers.RouterConfig{
		Version:        version,
		AuthConfig:     cfg.Auth,
		AuthService:    service,
		AuthMiddleware: auth.NewMiddleware(service, cfg.Auth),
		FlashManager:   flash,
		RateLimiter:    limiter,
		CSRFSecret:     csrfSecret,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Database:       app.Database,
		Audit:          auditReader,
		Static:         web.DirOr(cfg.UI.StaticPath, web.Static()),
		Templates:      web.DirOr(cfg.UI.TemplatesPath, web.Templates()),
	})

	return app, nil
}

// setupAudit enables the audit trail when configured and a database is
// available. Retention pruning is enqueued on the task queue by cron.
func (a *App) setupAudit(cfg *config.Config, clock abtime.AbstractTime) error {
	if !cfg.Audit.Enabled {
		return nil
	}
	if a.Database == nil {
		log.Info().Msg("audit trail disabled: it requires DATABASE_PATH")
		return nil
	}

	a.Audit = audit.NewService(auditRepo.NewRepository(a.Database.DB), clock)
	log.Info().Dur("retention", cfg.Audit.Retention).Msg("audit trail enabled")

	if cfg.Audit.Retention <= 0 || cfg.Audit.Cleanup == "" {
		return nil
	}
	if cfg.Database.Path == ":memory:" {
		log.Info().Msg("audit pruning disabled for an in-memory database")
		return nil
	}

	client, err := tasks.NewClient(cfg.Database.Path, tasks.Config{
		Workers:         cfg.Tasks.Workers,
		ReleaseAfter:    cfg.Tasks.ReleaseAfter,
		CleanupInterval: cfg.Tasks.CleanupInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize task queue: %w", err)
	}
	a.Tasks = client
	client.Register(tasks.NewCleanupAuditEventsQueue(a.Audit))

	if a.Scheduler == nil {
		a.Scheduler = cron.New()
	}
	task := tasks.NewCleanupAuditEventsTask(cfg.Audit.Retention)
	if _, err := client.Schedule(a.Scheduler, cfg.Audit.Cleanup, task); err != nil {
		return fmt.Errorf("invalid audit cleanup schedule %q: %w", cfg.Audit.Cleanup, err)
	}
	return nil
}

func (a *App) sqlDB() *sql.DB {
	if a.Database == nil {
		return nil
	}
	sqlDB, err := a.Database.SQL()
	if err != nil {
		log.Warn().Err(err).Msg("database handle unavailable, flash messages kept in memory")
		return nil
	}
	return sqlDB
}

// sessionSecret decodes the configured secret or generates a random one.
func sessionSecret(configured string) ([]byte, error) {
	if configured != "" {
		return auth.DecodeSecret(configured), nil
	}
	generated, err := auth.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	log.Warn().Msg("AUTH_SESSION_SECRET is not set, using a random secret: sessions will not survive a restart")
	return auth.DecodeSecret(generated), nil
}

func deriveKey(secret []byte, label string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(label))
	return mac.Sum(nil)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func Serve(ctx context.Context, router http.Handler, cfg *config.Config, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("mode", string(cfg.Auth.Mode)).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", timeout).Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Call shutdown callback after the listener is closed
	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}

	log.Info().Msg("server exiting")
	return nil
}

// Run builds the application and serves it until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	log.Info().Str("version", version).Msg("starting rolegate")

	app, err := Build(cfg, version, nil)
	if err != nil {
		return err
	}
	app.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Serve(ctx, app.Router, cfg, app.Close); err != nil {
		app.Close(context.Background())
		return err
	}
	return nil
}
