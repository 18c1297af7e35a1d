package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/rolegate/internal/auth"
	"github.com/mrlokans/rolegate/internal/config"
)

// AuthTemplateData holds authentication info for templates.
type AuthTemplateData struct {
	Mode      config.AuthMode
	LoggedIn  bool   // Whether a credential resolved to a user
	Username  string // Empty if not logged in
	Role      string
	CSRFToken string // Empty when CSRF protection is off
}

// AuthContextMiddleware injects authentication data into Gin context for templates.
func AuthContextMiddleware(authMode config.AuthMode) gin.HandlerFunc {
	return func(c *gin.Context) {
		authData := AuthTemplateData{
			Mode:      authMode,
			CSRFToken: auth.GetCSRFToken(c),
		}

		if user := auth.GetUser(c); user != nil {
			authData.LoggedIn = true
			authData.Username = user.Username
			authData.Role = string(user.Role)
		}

		c.Set("auth_template_data", authData)
		c.Next()
	}
}

// GetAuthTemplateData retrieves auth data from context for use in templates.
func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, exists := c.Get("auth_template_data"); exists {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}
