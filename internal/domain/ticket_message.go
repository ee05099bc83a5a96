package domain

import "time"

// TicketMessageType differentiates between replies, notes and system events.
type TicketMessageType string

const (
	MessageTypePublic   TicketMessageType = "public"
	MessageTypeInternal TicketMessageType = "internal"
	MessageTypeSystem   TicketMessageType = "system"
)

// Valid reports whether t is a known message type.
func (t TicketMessageType) Valid() bool {
	switch t {
	case MessageTypePublic, MessageTypeInternal, MessageTypeSystem:
		return true
	}
	return false
}

// TicketMessage captures communications in a ticket thread. Append-only.
type TicketMessage struct {
	ID          string
	TicketID    string
	CreatedBy   string
	Content     string
	MessageType TicketMessageType
	CreatedAt   time.Time
}
