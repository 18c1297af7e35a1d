package http

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/rolegate/internal/auth"
	"github.com/mrlokans/rolegate/internal/config"
	"github.com/mrlokans/rolegate/internal/database"
	"github.com/mrlokans/rolegate/internal/entities"
)

// RouterConfig holds all dependencies needed to build the router.
type RouterConfig struct {
	Version    string
	AuthConfig config.Auth

	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	FlashManager   *auth.FlashManager // session mode only, may be nil
	RateLimiter    *auth.RateLimiter  // may be nil
	CSRFSecret     []byte             // empty disables CSRF protection

	// TrustedProxies may set X-Forwarded-For. nil trusts none, so
	// ClientIP is the socket address.
	TrustedProxies []string

	Database *database.Database // nil when the in-memory store is used
	Audit    AuditReader        // nil disables GET /admin/audit

	Static    fs.FS
	Templates fs.FS
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error().Err(err).Strs("proxies", cfg.TrustedProxies).Msg("invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(CorrelationIDMiddleware())
	router.Use(LoggingMiddleware())
	router.Use(RecoverMiddleware())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	session := cfg.AuthConfig.Mode == config.AuthModeSession

	if session {
		// CSRF must run before flash so the flash context survives CSRF's
		// request replacement.
		if len(cfg.CSRFSecret) > 0 {
			router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
		}
		if cfg.FlashManager != nil {
			router.Use(cfg.FlashManager.LoadAndSave())
		}
	}

	router.Use(cfg.AuthMiddleware.Handler())
	router.Use(AuthContextMiddleware(cfg.AuthConfig.Mode))

	health := NewHealthController(cfg.Database, cfg.Version, string(cfg.AuthConfig.Mode))
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	if cfg.Static != nil {
		router.StaticFS("/static", http.FS(cfg.Static))
	}

	ui := NewUIController(cfg.Static)
	roles := NewRolesController(cfg.Templates)
	mw := cfg.AuthMiddleware

	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Audit)
		router.GET("/admin/audit", auth.NoStoreMiddleware(), mw.RequireRole(entities.UserRoleAdmin), auditController.Events)
	}

	if session {
		authController := auth.NewAuthController(cfg.AuthService, cfg.FlashManager, cfg.RateLimiter, cfg.Templates, cfg.AuthConfig)
		authController.RegisterRoutes(router)

		router.GET("/", ui.Home)

		private := router.Group("", auth.NoStoreMiddleware())
		private.GET("/dashboard", mw.RequireAuth(), roles.Dashboard)
		private.GET("/api/me", mw.RequireAuth(), roles.Me)
		private.GET("/admin/data", mw.RequireRole(entities.UserRoleAdmin), roles.RoleData(entities.UserRoleAdmin))
		private.GET("/editor/data", mw.RequireRole(entities.UserRoleEditor), roles.RoleData(entities.UserRoleEditor))
		private.GET("/viewer/data", mw.RequireRole(entities.UserRoleViewer), roles.RoleData(entities.UserRoleViewer))
		return router
	}

	router.GET("/", ui.Index)
	router.GET("/protected", mw.RequireAuth(), roles.Protected)
	router.GET("/admin-only", mw.RequireRole(entities.UserRoleAdmin), roles.AdminOnly)
	router.GET("/editor-only", mw.RequireRole(entities.UserRoleEditor), roles.EditorOnly)
	router.GET("/viewer-only", mw.RequireRole(entities.UserRoleViewer), roles.ViewerOnly)

	return router
}
