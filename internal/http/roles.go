package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/rolegate/internal/auth"
)

// RolesController serves the role-gated demo endpoints of both services.
// Every handler runs behind auth.Middleware.RequireRole, so a user is
// always present in the context.
type RolesController struct {
	dashboard *template.Template
}

// NewRolesController creates the controller. A nil templates FS, or one
// without dashboard.html, makes the dashboard answer with JSON.
func NewRolesController(templates fs.FS) *RolesController {
	rc := &RolesController{}
	if templates != nil {
		tmpl, err := template.ParseFS(templates, "dashboard.html")
		if err != nil {
			log.Debug().Err(err).Msg("dashboard template not loaded, using JSON responses")
		} else {
			rc.dashboard = tmpl
		}
	}
	return rc
}

// Protected handles GET /protected.
func (rc *RolesController) Protected(c *gin.Context) {
	respondMessage(c, fmt.Sprintf("Hello %s, you are authenticated as %s.", auth.GetUsername(c), auth.GetUserRole(c)))
}

// AdminOnly handles GET /admin-only.
func (rc *RolesController) AdminOnly(c *gin.Context) {
	respondMessage(c, fmt.Sprintf("Welcome admin %s!", auth.GetUsername(c)))
}

// EditorOnly handles GET /editor-only.
func (rc *RolesController) EditorOnly(c *gin.Context) {
	respondMessage(c, fmt.Sprintf("Welcome editor %s!", auth.GetUsername(c)))
}

// ViewerOnly handles GET /viewer-only.
func (rc *RolesController) ViewerOnly(c *gin.Context) {
	respondMessage(c, fmt.Sprintf("Hello viewer %s", auth.GetUsername(c)))
}

// MeResponse describes the caller.
type MeResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Me handles GET /api/me.
func (rc *RolesController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, MeResponse{
		Username: auth.GetUsername(c),
		Role:     string(auth.GetUserRole(c)),
	})
}

// RoleDataResponse is returned by the /<role>/data endpoints.
type RoleDataResponse struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// RoleData returns a handler for GET /<role>/data.
func (rc *RolesController) RoleData(role auth.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, RoleDataResponse{
			Role:    string(role),
			Message: fmt.Sprintf("%s data for %s", role, auth.GetUsername(c)),
		})
	}
}

// Dashboard handles GET /dashboard.
func (rc *RolesController) Dashboard(c *gin.Context) {
	message := fmt.Sprintf("Hello %s, you are authenticated as %s.", auth.GetUsername(c), auth.GetUserRole(c))

	if rc.dashboard == nil || !wantsHTML(c) {
		c.JSON(http.StatusOK, gin.H{
			"message":  message,
			"username": auth.GetUsername(c),
			"role":     auth.GetUserRole(c),
		})
		return
	}

	data := GetAuthTemplateData(c)
	var buf bytes.Buffer
	if err := rc.dashboard.Execute(&buf, gin.H{
		"Message":   message,
		"Role":      data.Role,
		"CSRFToken": data.CSRFToken,
	}); err != nil {
		respondInternalError(c, err, "render dashboard")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
