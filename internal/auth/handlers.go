package auth

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/rolegate/internal/config"
	"github.com/mrlokans/rolegate/internal/entities"
)

// AuthController serves the signup, login and logout endpoints of the
// session service.
type AuthController struct {
	service     *Service
	flash       *FlashManager
	templates   *template.Template
	config      config.Auth
	rateLimiter *RateLimiter
}

// NewAuthController creates a new authentication controller. flash and
// rateLimiter may be nil. Pages are parsed from auth/*.html in templates;
// a nil or empty templates FS gives JSON responses instead.
func NewAuthController(service *Service, flash *FlashManager, rateLimiter *RateLimiter, templates fs.FS, cfg config.Auth) *AuthController {
	var tmpl *template.Template
	if templates != nil {
		var err error
		tmpl, err = template.ParseFS(templates, "auth/*.html")
		if err != nil {
			log.Debug().Err(err).Msg("auth templates not loaded, using JSON responses")
			tmpl = nil
		}
	}

	return &AuthController{
		service:     service,
		flash:       flash,
		templates:   tmpl,
		config:      cfg,
		rateLimiter: rateLimiter,
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET("/signup", ac.SignupPage)
	router.POST("/signup", ac.Signup)
	router.GET("/login", ac.LoginPage)
	if ac.rateLimiter != nil {
		router.POST("/login", ac.rateLimiter.RateLimitMiddleware(), ac.Login)
	} else {
		router.POST("/login", ac.Login)
	}
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout)
}

// SignupPage renders the signup form.
func (ac *AuthController) SignupPage(c *gin.Context) {
	ac.renderTemplate(c, http.StatusOK, "signup.html", gin.H{
		"Title":     "Sign up",
		"Roles":     ac.service.Roles(),
		"CSRFToken": GetCSRFToken(c),
	})
}

// Signup handles the signup form submission.
func (ac *AuthController) Signup(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	role := entities.UserRole(c.PostForm("role"))
	if role == "" {
		role = entities.UserRoleUser
	}

	user, err := ac.service.Signup(username, password, role)
	if err != nil {
		ac.service.recordEvent(c, failedEvent(entities.AuditActionSignup, username, err.Error()))

		msg := "Failed to create user"
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrDuplicateIdentity):
			msg = DetailUsernameTaken
		case errors.Is(err, ErrUsernameRequired), errors.Is(err, ErrUsernameInvalid),
			errors.Is(err, ErrPasswordRequired), errors.Is(err, ErrPasswordTooShort),
			errors.Is(err, ErrPasswordTooLong), errors.Is(err, ErrInvalidRole):
			msg = err.Error()
		default:
			log.Error().Err(err).Str("user", username).Msg("signup failed")
			status = http.StatusInternalServerError
		}

		ac.renderError(c, status, "signup.html", msg, gin.H{
			"Title":     "Sign up",
			"Username":  username,
			"Roles":     ac.service.Roles(),
			"CSRFToken": GetCSRFToken(c),
		})
		return
	}

	ac.service.recordEvent(c, &entities.AuditEvent{
		Action:   entities.AuditActionSignup,
		Username: user.Username,
		Role:     user.Role,
	})

	if ac.flash != nil {
		ac.flash.AddFlash(c.Request, "Account created, please log in.")
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	data := gin.H{
		"Title":     "Login",
		"CSRFToken": GetCSRFToken(c),
	}
	if ac.flash != nil {
		if msg := ac.flash.PopFlash(c.Request); msg != "" {
			data["Flash"] = msg
		}
	}
	ac.renderTemplate(c, http.StatusOK, "login.html", data)
}

// Login handles the login form submission and sets the access token cookie.
func (ac *AuthController) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	clientIP := c.ClientIP()

	token, user, err := ac.service.Login(username, password)
	if err != nil {
		ac.service.recordEvent(c, failedEvent(entities.AuditActionLogin, username, err.Error()))
		if ac.rateLimiter != nil {
			if locked, _ := ac.rateLimiter.RecordFailure(clientIP, username); locked {
				log.Warn().Str("ip", clientIP).Str("user", username).Msg("login locked out")
				ac.service.recordEvent(c, failedEvent(entities.AuditActionLockout, username, "too many failed attempts"))
			}
		}

		status := http.StatusBadRequest
		msg := DetailInvalidCredentials
		if !errors.Is(err, ErrInvalidCredential) && !errors.Is(err, ErrMissingCredential) {
			log.Error().Err(err).Msg("login failed")
			status = http.StatusInternalServerError
			msg = "Login failed"
		}

		ac.renderError(c, status, "login.html", msg, gin.H{
			"Title":     "Login",
			"Username":  username,
			"CSRFToken": GetCSRFToken(c),
		})
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, user.Username)
	}
	ac.service.recordEvent(c, &entities.AuditEvent{
		Action:   entities.AuditActionLogin,
		Username: user.Username,
		Role:     user.Role,
	})

	ac.setAccessCookie(c, token, int(ac.service.Sessions().TTL().Seconds()))
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Logout clears the access token cookie. The token itself stays valid
// until it expires.
func (ac *AuthController) Logout(c *gin.Context) {
	if user := GetUser(c); user != nil {
		ac.service.recordEvent(c, &entities.AuditEvent{
			Action:   entities.AuditActionLogout,
			Username: user.Username,
			Role:     user.Role,
		})
	}
	ac.setAccessCookie(c, "", -1)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (ac *AuthController) setAccessCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ac.config.CookieName, value, maxAge, "/", "", ac.config.SecureCookies, true)
}

// renderError renders a form page with an error, or the {"detail": ...}
// body when no templates are loaded.
func (ac *AuthController) renderError(c *gin.Context, status int, name, msg string, data gin.H) {
	if ac.templates == nil {
		c.JSON(status, ErrorResponse{Detail: msg})
		return
	}
	data["Error"] = msg
	ac.renderTemplate(c, status, name, data)
}

// renderTemplate renders an auth template or falls back to JSON.
func (ac *AuthController) renderTemplate(c *gin.Context, status int, name string, data gin.H) {
	if ac.templates == nil {
		c.JSON(status, data)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("template error")
	}
}
