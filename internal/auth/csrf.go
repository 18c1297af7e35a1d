package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFTokenHeader is the header name for CSRF token in AJAX requests.
const CSRFTokenHeader = "X-CSRF-Token"

const contextKeyCSRFToken = "csrf_token"

// CSRFMiddleware creates a Gin middleware for CSRF protection of the
// signup and login forms. Safe methods pass through with a fresh token in
// the context. When secure is false the request is marked as plaintext
// HTTP so local development without TLS still passes the origin checks.
func CSRFMiddleware(secret []byte, secure bool) gin.HandlerFunc {
	csrfProtect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		passed := false
		handler := csrfProtect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Set(contextKeyCSRFToken, csrf.Token(r))
			c.Request = r
			c.Next()
		}))

		r := c.Request
		if !secure {
			r = csrf.PlaintextHTTPRequest(r)
		}
		handler.ServeHTTP(c.Writer, r)

		// The error handler already wrote the response.
		if !passed {
			c.Abort()
		}
	}
}

// csrfErrorHandler handles CSRF validation failures.
func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"CSRF token invalid or missing"}`))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("Form expired or invalid. Go back, reload the page and try again.\n"))
}

// GetCSRFToken retrieves the CSRF token from the Gin context.
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get(contextKeyCSRFToken); exists {
		if t, ok := token.(string); ok {
			return t
		}
	}
	return ""
}
