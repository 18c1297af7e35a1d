package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/rolegate/internal/auth"
	"github.com/mrlokans/rolegate/internal/database/audit"
	"github.com/mrlokans/rolegate/internal/entities"
)

const maxAuditPageSize = 200

// AuditReader lists recorded authentication events.
type AuditReader interface {
	GetEvents(filter audit.Filter) ([]entities.AuditEvent, int64, error)
}

type AuditEventsResponse struct {
	Events []entities.AuditEvent `json:"events"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

type AuditController struct {
	reader AuditReader
}

func NewAuditController(reader AuditReader) *AuditController {
	return &AuditController{reader: reader}
}

// Events handles GET /admin/audit?limit=&offset=&username=&action=.
func (ac *AuditController) Events(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil || limit <= 0 || limit > maxAuditPageSize {
		c.JSON(http.StatusBadRequest, auth.ErrorResponse{Detail: "limit must be between 1 and 200"})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, auth.ErrorResponse{Detail: "offset must be a non-negative integer"})
		return
	}

	filter := audit.Filter{
		Username: c.Query("username"),
		Action:   entities.AuditAction(c.Query("action")),
		Limit:    limit,
		Offset:   offset,
	}
	events, total, err := ac.reader.GetEvents(filter)
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, AuditEventsResponse{
		Events: events,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
