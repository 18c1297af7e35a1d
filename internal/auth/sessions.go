package auth

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/mrlokans/rolegate/internal/config"
)

const (
	flashKey        = "flash"
	flashCookieName = "flash"
	flashLifetime   = 10 * time.Minute
)

// FlashManager carries one-shot UI messages across the redirects of the
// signup and login flow. It holds no authentication state: identity lives
// only in the signed access token cookie.
type FlashManager struct {
	*scs.SessionManager
}

// NewFlashManager creates a flash store. With a nil sqlDB messages live in
// memory; otherwise they are kept in the SQLite sessions table.
func NewFlashManager(sqlDB *sql.DB, cfg config.Auth) (*FlashManager, error) {
	sm := scs.New()

	if sqlDB != nil {
		_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
		if err != nil {
			return nil, err
		}
		sm.Store = sqlite3store.New(sqlDB)
	} else {
		sm.Store = memstore.New()
	}

	sm.Lifetime = flashLifetime
	sm.Cookie.Name = flashCookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Persist = false

	return &FlashManager{SessionManager: sm}, nil
}

// AddFlash queues a message for the next page render.
func (fm *FlashManager) AddFlash(r *http.Request, message string) {
	fm.Put(r.Context(), flashKey, message)
}

// PopFlash returns and clears the queued message.
func (fm *FlashManager) PopFlash(r *http.Request) string {
	return fm.PopString(r.Context(), flashKey)
}
