package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"
)

const defaultAuditRetention = 30 * 24 * time.Hour

// AuditEventCleaner provides the ability to delete old audit events.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// CleanupAuditEventsTask removes audit events older than the configured retention period.
type CleanupAuditEventsTask struct {
	RetentionHours int `json:"retention_hours"`
}

// NewCleanupAuditEventsTask builds a task for retention, rounded down to
// whole hours.
func NewCleanupAuditEventsTask(retention time.Duration) CleanupAuditEventsTask {
	return CleanupAuditEventsTask{RetentionHours: int(retention / time.Hour)}
}

// Config returns the queue configuration for audit cleanup tasks.
func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_audit_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupAuditEventsProcessor creates a processor function for CleanupAuditEventsTask.
func CleanupAuditEventsProcessor(cleaner AuditEventCleaner) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return fmt.Errorf("audit event cleaner not configured")
		}

		retention := time.Duration(task.RetentionHours) * time.Hour
		if retention <= 0 {
			retention = defaultAuditRetention
		}

		deleted, err := cleaner.DeleteOldEvents(retention)
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}

		log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("pruned audit events")
		return nil
	}
}

// NewCleanupAuditEventsQueue creates a backlite queue for audit cleanup tasks.
func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner))
}
