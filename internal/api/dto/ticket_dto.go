package dto

import (
	"time"

	"github.com/helpdesk-io/support-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	OrganizationID string                `json:"organization_id"`
	Subject        string                `json:"subject"`
	Category       string                `json:"category"`
	Priority       domain.TicketPriority `json:"priority"`
	Tags           []string              `json:"tags"`
}

// UpdateStatusRequest moves a ticket to Status. ExpectedStatus is the status the
// client last saw; when set, the change only applies if the ticket still has it.
type UpdateStatusRequest struct {
	Status         domain.TicketStatus  `json:"status"`
	ExpectedStatus *domain.TicketStatus `json:"expected_status,omitempty"`
}

// UpdatePriorityRequest payload, same contract as UpdateStatusRequest.
type UpdatePriorityRequest struct {
	Priority         domain.TicketPriority  `json:"priority"`
	ExpectedPriority *domain.TicketPriority `json:"expected_priority,omitempty"`
}

// AssignRequest sets AgentID as assignee, or clears the assignment when null.
// ExpectedAssignedTo uses "" for "unassigned".
type AssignRequest struct {
	AgentID            *string `json:"agent_id"`
	ExpectedAssignedTo *string `json:"expected_assigned_to,omitempty"`
}

// TicketResponse representation.
type TicketResponse struct {
	ID             string                `json:"id"`
	OrganizationID string                `json:"organization_id"`
	CreatedBy      string                `json:"created_by"`
	AssignedTo     *string               `json:"assigned_to"`
	Subject        string                `json:"subject"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	Category       string                `json:"category"`
	Tags           []string              `json:"tags"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// CreateMessageRequest payload. MessageType defaults to public.
type CreateMessageRequest struct {
	Content     string                   `json:"content"`
	MessageType domain.TicketMessageType `json:"message_type"`
}

// TicketMessageResponse represents a thread message.
type TicketMessageResponse struct {
	ID          string                   `json:"id"`
	TicketID    string                   `json:"ticket_id"`
	CreatedBy   string                   `json:"created_by"`
	Content     string                   `json:"content"`
	MessageType domain.TicketMessageType `json:"message_type"`
	CreatedAt   time.Time                `json:"created_at"`
}

// AuditLogEntryResponse represents one audit record.
type AuditLogEntryResponse struct {
	ID        string                `json:"id"`
	TicketID  string                `json:"ticket_id"`
	EventType domain.AuditEventType `json:"event_type"`
	FromValue *string               `json:"from_value"`
	ToValue   *string               `json:"to_value"`
	UserID    string                `json:"user_id"`
	CreatedAt time.Time             `json:"created_at"`
}

// DecisionResponse is the engine's answer to an authorization question.
type DecisionResponse struct {
	Action  string `json:"action"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:             t.ID,
		OrganizationID: t.OrganizationID,
		CreatedBy:      t.CreatedBy,
		AssignedTo:     t.AssignedTo,
		Subject:        t.Subject,
		Status:         t.Status,
		Priority:       t.Priority,
		Category:       t.Category,
		Tags:           t.Tags,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// NewTicketMessageResponse maps a message.
func NewTicketMessageResponse(m *domain.TicketMessage) TicketMessageResponse {
	return TicketMessageResponse{
		ID:          m.ID,
		TicketID:    m.TicketID,
		CreatedBy:   m.CreatedBy,
		Content:     m.Content,
		MessageType: m.MessageType,
		CreatedAt:   m.CreatedAt,
	}
}

// NewAuditLogEntryResponse maps an audit entry.
func NewAuditLogEntryResponse(e *domain.AuditLogEntry) AuditLogEntryResponse {
	return AuditLogEntryResponse{
		ID:        e.ID,
		TicketID:  e.TicketID,
		EventType: e.EventType,
		FromValue: e.FromValue,
		ToValue:   e.ToValue,
		UserID:    e.UserID,
		CreatedAt: e.CreatedAt,
	}
}
