package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/rolegate/internal/database"
)

type HealthResponse struct {
	Status   string            `json:"status"`
	Time     string            `json:"time"`
	Version  string            `json:"version,omitempty"`
	AuthMode string            `json:"auth_mode"`
	Checks   map[string]string `json:"checks"`
}

type HealthController struct {
	db       *database.Database
	version  string
	authMode string
}

func NewHealthController(db *database.Database, version, authMode string) *HealthController {
	return &HealthController{
		db:       db,
		version:  version,
		authMode: authMode,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	// Check database connectivity
	if h.db != nil {
		sqlDB, err := h.db.SQL()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
			if count, err := h.db.CountUsers(); err == nil {
				checks["users"] = strconv.FormatInt(count, 10)
			}
		}
	} else {
		checks["database"] = "in-memory"
	}

	health := HealthResponse{
		Status:   status,
		Time:     time.Now().UTC().Format(time.RFC3339),
		Version:  h.version,
		AuthMode: h.authMode,
		Checks:   checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
