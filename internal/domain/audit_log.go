package domain

import "time"

// AuditEventType captures what changed in an audit entry.
type AuditEventType string

const (
	AuditStatusChange     AuditEventType = "status_change"
	AuditPriorityChange   AuditEventType = "priority_change"
	AuditAssignmentChange AuditEventType = "assignment_change"
)

// AuditLogEntry is an immutable record of one committed ticket mutation.
// FromValue/ToValue are nil when the field was unset (assignment only).
type AuditLogEntry struct {
	ID        string
	TicketID  string
	EventType AuditEventType
	FromValue *string
	ToValue   *string
	UserID    string
	CreatedAt time.Time
}
