// Package authz decides which principal may view or mutate which resource.
//
// The engine is a pure function of its inputs. Callers fetch every membership
// fact immediately before asking and pass it in as a ResourceContext; the engine
// never reads external state and never caches decisions.
package authz

// Action enumerates the operations guarded by the engine.
type Action string

const (
	ViewTicket            Action = "view_ticket"
	CreateTicket          Action = "create_ticket"
	UpdateTicketStatus    Action = "update_ticket_status"
	UpdateTicketPriority  Action = "update_ticket_priority"
	AssignTicket          Action = "assign_ticket"
	ViewInternalMessage   Action = "view_internal_message"
	CreateInternalMessage Action = "create_internal_message"
	ManageOrganization    Action = "manage_organization"
	RespondToInvitation   Action = "respond_to_invitation"
)

// Actions lists every known action.
var Actions = []Action{
	ViewTicket,
	CreateTicket,
	UpdateTicketStatus,
	UpdateTicketPriority,
	AssignTicket,
	ViewInternalMessage,
	CreateInternalMessage,
	ManageOrganization,
	RespondToInvitation,
}

func (a Action) known() bool {
	for _, candidate := range Actions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ticketScoped reports whether the action concerns a ticket or its thread.
func (a Action) ticketScoped() bool {
	switch a {
	case ViewTicket, UpdateTicketStatus, UpdateTicketPriority, AssignTicket, ViewInternalMessage, CreateInternalMessage:
		return true
	}
	return false
}

// Deny reasons.
const (
	ReasonNotMember         = "not a member"
	ReasonInsufficientRole  = "insufficient organization role"
	ReasonNotTicketCreator  = "not the ticket creator"
	ReasonAgentNotEligible  = "agent not eligible for organization"
	ReasonAgentManageOrg    = "agents cannot manage organizations"
	ReasonNotInvitee        = "not the invitee"
	ReasonMissingContext    = "missing organization context"
	ReasonTicketOutsideOrg  = "ticket outside organization"
	ReasonUnknownAction     = "unknown action"
	ReasonUnknownSystemRole = "unknown system role"
	ReasonMissingPrincipal  = "missing principal"
)
