// Package audit persists authentication outcomes recorded by the auth
// package. Pruning runs as a background task, see tasks.CleanupAuditEventsTask.
package audit

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/thejerf/abtime"

	"github.com/mrlokans/rolegate/internal/database/audit"
	"github.com/mrlokans/rolegate/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	clock   abtime.AbstractTime
	pending sync.WaitGroup
}

// NewService creates a new audit service. clock may be nil for real time.
func NewService(repo *audit.Repository, clock abtime.AbstractTime) *Service {
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	return &Service{repo: repo, clock: clock}
}

// Log records an event synchronously.
func (s *Service) Log(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.clock.Now().UTC()
	}
	event.Username = truncate(event.Username, 100)
	event.Path = truncate(event.Path, 255)
	event.UserAgent = truncate(event.UserAgent, 500)
	event.ErrorMsg = truncate(event.ErrorMsg, 500)
	return s.repo.LogEvent(event)
}

// Record logs an event in the background. Failures are only logged.
func (s *Service) Record(event *entities.AuditEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.clock.Now().UTC()
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.Log(event); err != nil {
			log.Error().Err(err).Str("action", string(event.Action)).Msg("failed to log audit event")
		}
	}()
}

// Wait blocks until every event passed to Record has been written.
func (s *Service) Wait() {
	s.pending.Wait()
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(filter audit.Filter) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(filter)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := s.clock.Now().UTC().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to at most maxLen bytes without splitting a
// multi-byte rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
