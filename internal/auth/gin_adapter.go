package auth

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// flashResponseWriter wraps http.ResponseWriter to intercept WriteHeader
// and write the flash cookie before headers are sent.
type flashResponseWriter struct {
	gin.ResponseWriter
	fm            *FlashManager
	request       *http.Request
	wroteHeader   bool
	cookieWritten bool
}

func (w *flashResponseWriter) WriteHeader(code int) {
	w.beforeHeader()
	w.ResponseWriter.WriteHeader(code)
}

func (w *flashResponseWriter) WriteHeaderNow() {
	w.beforeHeader()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *flashResponseWriter) Write(b []byte) (int, error) {
	w.beforeHeader()
	return w.ResponseWriter.Write(b)
}

func (w *flashResponseWriter) WriteString(s string) (int, error) {
	w.beforeHeader()
	return w.ResponseWriter.WriteString(s)
}

func (w *flashResponseWriter) beforeHeader() {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.writeCookie()
	}
}

func (w *flashResponseWriter) writeCookie() {
	if w.cookieWritten {
		return
	}
	w.cookieWritten = true

	ctx := w.request.Context()
	switch w.fm.Status(ctx) {
	case scs.Modified:
		token, expiry, err := w.fm.Commit(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to commit flash session")
			return
		}
		w.fm.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
	case scs.Destroyed:
		w.fm.WriteSessionCookie(ctx, w.ResponseWriter, "", time.Time{})
	}
}

func (w *flashResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.Hijack()
}

// LoadAndSave returns a Gin middleware equivalent to scs's LoadAndSave.
// It must run before any flash operation.
func (fm *FlashManager) LoadAndSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(fm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := fm.Load(c.Request.Context(), token)
		if err != nil {
			log.Error().Err(err).Msg("failed to load flash session")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		w := &flashResponseWriter{
			ResponseWriter: c.Writer,
			fm:             fm,
			request:        c.Request,
		}
		c.Writer = w

		c.Next()

		// Ensure the cookie is written even if no response body
		if !w.wroteHeader {
			w.writeCookie()
		}
	}
}
