package entities

import "time"

type AuditAction string

const (
	AuditActionSignup       AuditAction = "signup"
	AuditActionLogin        AuditAction = "login"
	AuditActionLogout       AuditAction = "logout"
	AuditActionLockout      AuditAction = "lockout"
	AuditActionAccessDenied AuditAction = "access_denied"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// AuditEvent is one recorded authentication or authorization outcome.
// It never carries credential material.
type AuditEvent struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Action    AuditAction `gorm:"index;size:50" json:"action"`
	Username  string      `gorm:"index;size:100" json:"username"`
	Role      UserRole    `gorm:"size:32" json:"role,omitempty"`
	Required  string      `gorm:"size:32" json:"required,omitempty"` // role the route asked for
	Path      string      `gorm:"size:255" json:"path,omitempty"`
	IPAddress string      `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent string      `gorm:"size:500" json:"user_agent,omitempty"`
	Status    AuditStatus `gorm:"size:20" json:"status"`
	ErrorMsg  string      `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt time.Time   `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
