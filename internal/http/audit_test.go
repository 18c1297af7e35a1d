package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/rolegate/internal/auth"
	"github.com/mrlokans/rolegate/internal/config"
	"github.com/mrlokans/rolegate/internal/database/audit"
	"github.com/mrlokans/rolegate/internal/entities"
)

type fakeAuditLog struct {
	mu         sync.Mutex
	events     []entities.AuditEvent
	lastFilter audit.Filter
	err        error
}

func (f *fakeAuditLog) Record(event *entities.AuditEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *event)
}

func (f *fakeAuditLog) GetEvents(filter audit.Filter) ([]entities.AuditEvent, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	return append([]entities.AuditEvent(nil), f.events...), int64(len(f.events)), nil
}

func setupAuditRouter(t *testing.T, log *fakeAuditLog) *gin.Engine {
	t.Helper()
	cfg := testAuthConfig(config.AuthModeAPIKey)

	store := auth.NewMemoryStore()
	tokens, err := auth.ParseStaticTokens(config.DefaultStaticTokens)
	require.NoError(t, err)
	_, err = auth.SeedTokens(store, tokens)
	require.NoError(t, err)

	svc := auth.NewService(store, nil, cfg, nil)
	svc.SetEventRecorder(log)
	return NewRouter(RouterConfig{
		Version:        "test",
		AuthConfig:     cfg,
		AuthService:    svc,
		AuthMiddleware: auth.NewMiddleware(svc, cfg),
		Audit:          log,
	})
}

func TestAuditController_Events(t *testing.T) {
	log := &fakeAuditLog{}
	router := setupAuditRouter(t, log)

	// bob is denied, which is itself recorded
	w := get(router, "/admin/audit", map[string]string{"Authorization": "bob-token"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Requires role 'admin'", bodyField(t, w, "detail"))

	w = get(router, "/admin/audit?username=bob&action=access_denied&limit=10&offset=0", map[string]string{"Authorization": "alice-token"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var resp AuditEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, 10, resp.Limit)
	require.Len(t, resp.Events, 1)

	denied := resp.Events[0]
	assert.Equal(t, entities.AuditActionAccessDenied, denied.Action)
	assert.Equal(t, "bob", denied.Username)
	assert.Equal(t, entities.UserRoleUser, denied.Role)
	assert.Equal(t, "admin", denied.Required)
	assert.Equal(t, "/admin/audit", denied.Path)
	assert.Equal(t, entities.AuditStatusFailed, denied.Status)

	assert.Equal(t, audit.Filter{Username: "bob", Action: entities.AuditActionAccessDenied, Limit: 10}, log.lastFilter)
}

func TestAuditController_BadQuery(t *testing.T) {
	router := setupAuditRouter(t, &fakeAuditLog{})
	admin := map[string]string{"Authorization": "alice-token"}

	for _, path := range []string{
		"/admin/audit?limit=0",
		"/admin/audit?limit=500",
		"/admin/audit?limit=ten",
		"/admin/audit?offset=-1",
	} {
		w := get(router, path, admin)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestAuditController_EmptyAndErrors(t *testing.T) {
	log := &fakeAuditLog{}
	router := setupAuditRouter(t, log)
	admin := map[string]string{"Authorization": "alice-token"}

	w := get(router, "/admin/audit", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[],"total":0,"limit":50,"offset":0}`, w.Body.String())

	log.err = errors.New("disk I/O error")
	w = get(router, "/admin/audit", admin)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", bodyField(t, w, "detail"))
}

func TestAuditRoute_AbsentWithoutReader(t *testing.T) {
	router := setupAPIKeyRouter(t)

	w := get(router, "/admin/audit", map[string]string{"Authorization": "alice-token"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
