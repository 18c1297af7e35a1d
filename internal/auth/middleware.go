package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/rolegate/internal/config"
	"github.com/mrlokans/rolegate/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUser      = "auth_user"
	ContextKeyAuthError = "auth_error"
	ContextKeyAuthType  = "auth_type" // "token", "session", or "none"
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeToken   AuthType = "token"
	AuthTypeSession AuthType = "session"
)

// Error details returned to clients. They never say which check failed.
const (
	DetailInvalidOrMissingToken = "Invalid or missing token"
	DetailNotAuthenticated      = "Not authenticated"
	DetailInvalidToken          = "Invalid token"
	DetailInvalidCredentials    = "Invalid credentials"
	DetailUsernameTaken         = "Username already registered"
)

// ErrorResponse mirrors the {"detail": "..."} body API clients expect.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Middleware resolves the caller's credential and enforces role requirements.
type Middleware struct {
	service *Service
	config  config.Auth
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, cfg config.Auth) *Middleware {
	return &Middleware{
		service: service,
		config:  cfg,
	}
}

// Handler returns a Gin middleware that resolves the credential for the
// configured mode. It never aborts: unauthenticated requests continue with
// no user so public routes keep working; RequireRole does the rejecting.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode == config.AuthModeSession {
		return m.sessionHandler()
	}
	return m.tokenHandler()
}

func (m *Middleware) tokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.service.AuthenticateToken(extractToken(c.GetHeader("Authorization")))
		m.setResult(c, user, err, AuthTypeToken)
		c.Next()
	}
}

func (m *Middleware) sessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var user *entities.User
		cookie, err := c.Cookie(m.config.CookieName)
		if err != nil || cookie == "" {
			err = ErrMissingCredential
		} else {
			user, err = m.service.AuthenticateSession(cookie)
		}
		m.setResult(c, user, err, AuthTypeSession)
		c.Next()
	}
}

// extractToken takes the header value verbatim. A "Bearer " prefix is
// stripped for API clients that add one.
func extractToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// setResult stores the resolved user or the reason resolution failed.
func (m *Middleware) setResult(c *gin.Context, user *entities.User, err error, authType AuthType) {
	if err != nil || user == nil {
		if err == nil {
			err = ErrMissingCredential
		}
		c.Set(ContextKeyAuthError, err)
		c.Set(ContextKeyAuthType, AuthTypeNone)
		return
	}
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyAuthType, authType)
}

// RequireAuth rejects requests without a resolved user.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return m.RequireRole(AnyAuthenticated)
}

// RequireRole rejects requests whose user does not hold the role exactly.
// Authentication failures answer 401, role mismatches 403.
func (m *Middleware) RequireRole(required Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Detail: m.unauthenticatedDetail(GetAuthError(c)),
			})
			return
		}

		if err := m.service.Authorize(user, required); err != nil {
			var forbidden *ForbiddenError
			if errors.As(err, &forbidden) {
				m.service.recordEvent(c, &entities.AuditEvent{
					Action:   entities.AuditActionAccessDenied,
					Username: user.Username,
					Role:     user.Role,
					Required: string(required),
					Status:   entities.AuditStatusFailed,
				})
				c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Detail: forbidden.Error()})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Detail: m.unauthenticatedDetail(err),
			})
			return
		}
		c.Next()
	}
}

func (m *Middleware) unauthenticatedDetail(err error) string {
	if m.config.Mode != config.AuthModeSession {
		return DetailInvalidOrMissingToken
	}
	if err == nil || errors.Is(err, ErrMissingCredential) {
		return DetailNotAuthenticated
	}
	return DetailInvalidToken
}

// Helper functions to extract auth data from Gin context

// GetUser retrieves the authenticated user from the context, or nil.
func GetUser(c *gin.Context) *entities.User {
	if u, exists := c.Get(ContextKeyUser); exists {
		if user, ok := u.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	if user := GetUser(c); user != nil {
		return user.Username
	}
	return ""
}

// GetUserRole retrieves the authenticated user's role from the context.
func GetUserRole(c *gin.Context) entities.UserRole {
	if user := GetUser(c); user != nil {
		return user.Role
	}
	return ""
}

// GetAuthError returns why credential resolution failed, if it did.
func GetAuthError(c *gin.Context) error {
	if e, exists := c.Get(ContextKeyAuthError); exists {
		if err, ok := e.(error); ok {
			return err
		}
	}
	return nil
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

// IsAuthenticated returns true if the request is authenticated.
func IsAuthenticated(c *gin.Context) bool {
	return GetUser(c) != nil
}
