package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is one of the modeled states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. OrganizationID is fixed at creation.
type Ticket struct {
	ID             string
	OrganizationID string
	CreatedBy      string
	AssignedTo     *string
	Subject        string
	Status         TicketStatus
	Priority       TicketPriority
	Category       string
	Tags           []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a deep copy so callers can hold a snapshot safely.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		out.AssignedTo = &assignee
	}
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	return &out
}
