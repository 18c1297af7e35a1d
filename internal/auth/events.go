package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/rolegate/internal/entities"
)

// EventRecorder receives authentication outcomes. Record must not block
// the request.
type EventRecorder interface {
	Record(event *entities.AuditEvent)
}

// SetEventRecorder attaches an audit sink. A nil recorder disables auditing.
func (s *Service) SetEventRecorder(r EventRecorder) {
	s.recorder = r
}

// recordEvent fills in request details and hands the event to the
// service's recorder, if any.
func (s *Service) recordEvent(c *gin.Context, event *entities.AuditEvent) {
	if s.recorder == nil {
		return
	}
	if c != nil && c.Request != nil {
		event.Path = c.Request.URL.Path
		event.IPAddress = c.ClientIP()
		event.UserAgent = c.Request.UserAgent()
	}
	if event.Status == "" {
		event.Status = entities.AuditStatusSuccess
	}
	s.recorder.Record(event)
}

func failedEvent(action entities.AuditAction, username string, reason string) *entities.AuditEvent {
	return &entities.AuditEvent{
		Action:   action,
		Username: username,
		Status:   entities.AuditStatusFailed,
		ErrorMsg: reason,
	}
}
