package events

import (
	"time"

	"github.com/helpdesk-io/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOrganizationCreated   EventType = "organization_created"
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketMessageAdded    EventType = "ticket_message_added"
	EventMembershipInvited     EventType = "membership_invited"
	EventMembershipResponded   EventType = "membership_responded"
	EventMemberRemoved         EventType = "member_removed"
	EventAuditDegraded         EventType = "audit_degraded"
)

// AllEventTypes lists every type, for subscribers that want everything.
var AllEventTypes = []EventType{
	EventOrganizationCreated,
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketPriorityChanged,
	EventTicketAssigned,
	EventTicketMessageAdded,
	EventMembershipInvited,
	EventMembershipResponded,
	EventMemberRemoved,
	EventAuditDegraded,
}

// Event represents a domain event emitted after a committed change.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	OrganizationID string    `json:"organization_id"`
	TicketID       string    `json:"ticket_id,omitempty"`
	ActorID        string    `json:"actor_id"`
	Timestamp      time.Time `json:"timestamp"`
	Payload        any       `json:"payload,omitempty"`
}

// FieldChangedPayload describes a status, priority or assignment change.
type FieldChangedPayload struct {
	Field string  `json:"field"`
	From  *string `json:"from"`
	To    *string `json:"to"`
}

// TicketMessageAddedPayload payload. Internal message bodies are never included.
type TicketMessageAddedPayload struct {
	MessageID   string                   `json:"message_id"`
	MessageType domain.TicketMessageType `json:"message_type"`
}

// MembershipPayload describes an invitation or membership change.
type MembershipPayload struct {
	MembershipID string                  `json:"membership_id"`
	UserID       string                  `json:"user_id"`
	OrgRole      domain.OrgRole          `json:"org_role"`
	Status       domain.MembershipStatus `json:"status"`
}

// AuditDegradedPayload carries the entry that could not be written.
type AuditDegradedPayload struct {
	EventType domain.AuditEventType `json:"event_type"`
	From      *string               `json:"from"`
	To        *string               `json:"to"`
	Attempts  int                   `json:"attempts"`
	Error     string                `json:"error"`
}
