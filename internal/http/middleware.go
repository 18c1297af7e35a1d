package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/rolegate/internal/auth"
)

const CorrelationIDHeader = "X-Correlation-ID"

// maxCorrelationIDLen bounds caller-supplied IDs before they are echoed
// and logged.
const maxCorrelationIDLen = 64

type correlationKey struct{}

// CorrelationID returns the request's correlation ID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// CorrelationIDMiddleware reuses the caller's X-Correlation-ID when it is
// short and made of safe characters, otherwise generates one. The ID is
// echoed on the response.
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if !validCorrelationID(id) {
			id = xid.New().String()
		}
		c.Header(CorrelationIDHeader, id)

		ctx := context.WithValue(c.Request.Context(), correlationKey{}, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch ch := id[i]; {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.':
		default:
			return false
		}
	}
	return true
}

// LoggingMiddleware attaches a request-scoped zerolog logger to the context
// and logs every handled request. Health checks are only logged on failure.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		l := log.With().
			Str("correlation_id", CorrelationID(c.Request.Context())).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("remote", c.ClientIP()).
			Logger()
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		if c.Request.URL.Path == "/health" && status < 400 {
			return
		}

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = l.Error()
		case status >= 400:
			event = l.Warn()
		default:
			event = l.Info()
		}
		if user := auth.GetUsername(c); user != "" {
			event = event.Str("user", user)
		}
		event.Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("request.handled")
	}
}

// RecoverMiddleware turns panics into a 500 with the {"detail"} body.
func RecoverMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		zerolog.Ctx(c.Request.Context()).Error().
			Interface("panic", err).
			Msg("panic.recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, auth.ErrorResponse{Detail: "Internal Server Error"})
	})
}
