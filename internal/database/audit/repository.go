package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/rolegate/internal/entities"
)

const defaultLimit = 50

// Filter narrows an event listing. Zero values match everything.
type Filter struct {
	Username string
	Action   entities.AuditAction
	Limit    int
	Offset   int
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an audit event to the database.
func (r *Repository) LogEvent(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	return r.db.Create(event).Error
}

// GetEvents returns matching events, most recent first, with the total
// count before pagination.
func (r *Repository) GetEvents(filter Filter) ([]entities.AuditEvent, int64, error) {
	var events []entities.AuditEvent
	var total int64

	query := r.db.Model(&entities.AuditEvent{})
	if filter.Username != "" {
		query = query.Where("username = ?", filter.Username)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// DeleteOldEvents removes audit events older than the specified time.
// Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}
