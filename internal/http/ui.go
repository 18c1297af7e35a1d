package http

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/rolegate/internal/auth"
)

// UIController serves the browser entry points.
type UIController struct {
	static fs.FS
}

func NewUIController(static fs.FS) *UIController {
	return &UIController{static: static}
}

// Index serves index.html, the API key tester page.
func (controller *UIController) Index(c *gin.Context) {
	page, err := fs.ReadFile(controller.static, "index.html")
	if err != nil {
		c.String(http.StatusNotFound, "index.html not found")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// Home sends session users to their dashboard and everyone else to login.
func (controller *UIController) Home(c *gin.Context) {
	if auth.IsAuthenticated(c) {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	c.Redirect(http.StatusSeeOther, "/login")
}
