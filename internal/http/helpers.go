package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/rolegate/internal/auth"
)

// MessageResponse is the body of every role-gated demo endpoint.
type MessageResponse struct {
	Message string `json:"message"`
}

// respondMessage sends a 200 OK response with a message.
func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, MessageResponse{Message: message})
}

// respondInternalError logs the error and sends a 500 response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("context", context).Msg("internal error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, auth.ErrorResponse{Detail: "Internal Server Error"})
}

// wantsHTML reports whether the client prefers an HTML page over JSON.
func wantsHTML(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEHTML
}
