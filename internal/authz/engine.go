package authz

import (
	"github.com/helpdesk-io/support-desk/internal/domain"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns an allowing decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny returns a denying decision carrying reason.
func Deny(reason string) Decision { return Decision{Reason: reason} }

// TicketFacts are the ticket attributes the rules look at.
type TicketFacts struct {
	OrganizationID string
	CreatedBy      string
	AssignedTo     *string
}

// FactsFor extracts TicketFacts from a ticket.
func FactsFor(t *domain.Ticket) *TicketFacts {
	if t == nil {
		return nil
	}
	return &TicketFacts{OrganizationID: t.OrganizationID, CreatedBy: t.CreatedBy, AssignedTo: t.AssignedTo}
}

// ResourceContext is the snapshot a decision is computed from.
type ResourceContext struct {
	OrganizationID string
	// Membership is the principal's membership in OrganizationID, nil when none exists.
	Membership *domain.Membership
	// AgentRostered is true when an AgentOrgAssociation exists for the principal.
	AgentRostered bool
	Ticket        *TicketFacts
	// InviteeID is the user an invitation was issued to (RespondToInvitation only).
	InviteeID string
}

// Authorizer is implemented by Engine; services depend on this so every call site shares one policy.
type Authorizer interface {
	Authorize(principal domain.Principal, action Action, rc ResourceContext) Decision
}

// Engine is the single authorization policy.
type Engine struct{}

// NewEngine returns the engine.
func NewEngine() Engine { return Engine{} }

// Authorize implements Authorizer.
func (Engine) Authorize(principal domain.Principal, action Action, rc ResourceContext) Decision {
	return Authorize(principal, action, rc)
}

// Authorize decides whether principal may perform action on the resource described by rc.
// Identical inputs always yield identical decisions.
func Authorize(principal domain.Principal, action Action, rc ResourceContext) Decision {
	if !action.known() {
		return Deny(ReasonUnknownAction)
	}
	if principal.UserID == "" {
		return Deny(ReasonMissingPrincipal)
	}
	if !principal.SystemRole.Valid() {
		return Deny(ReasonUnknownSystemRole)
	}
	if principal.SystemRole == domain.SystemRoleAdmin {
		return Allow()
	}

	if action == RespondToInvitation {
		if rc.InviteeID != "" && rc.InviteeID == principal.UserID {
			return Allow()
		}
		return Deny(ReasonNotInvitee)
	}

	if rc.OrganizationID == "" {
		return Deny(ReasonMissingContext)
	}
	if action.ticketScoped() && rc.Ticket != nil && rc.Ticket.OrganizationID != rc.OrganizationID {
		return Deny(ReasonTicketOutsideOrg)
	}

	membership := rc.Membership
	if membership != nil && (membership.OrganizationID != rc.OrganizationID || membership.UserID != principal.UserID) {
		membership = nil
	}

	switch principal.SystemRole {
	case domain.SystemRoleAgent:
		return decideAgent(action, membership, rc.AgentRostered)
	default:
		return decideUser(principal, action, membership, rc.Ticket)
	}
}

func decideAgent(action Action, membership *domain.Membership, rostered bool) Decision {
	if action == ManageOrganization {
		return Deny(ReasonAgentManageOrg)
	}
	if rostered {
		return Allow()
	}
	if !membership.Accepted() {
		return Deny(ReasonNotMember)
	}
	if membership.OrgRole == domain.OrgRoleAdmin {
		return Allow()
	}
	return Deny(ReasonAgentNotEligible)
}

func decideUser(principal domain.Principal, action Action, membership *domain.Membership, ticket *TicketFacts) Decision {
	if !membership.Accepted() {
		return Deny(ReasonNotMember)
	}
	switch membership.OrgRole {
	case domain.OrgRoleOwner, domain.OrgRoleAdmin:
		return Allow()
	case domain.OrgRoleMember:
		if action == CreateTicket {
			return Allow()
		}
		if action == ViewTicket && ticket != nil && ticket.CreatedBy == principal.UserID {
			return Allow()
		}
		if action == ViewTicket {
			return Deny(ReasonNotTicketCreator)
		}
		return Deny(ReasonInsufficientRole)
	}
	return Deny(ReasonInsufficientRole)
}

// EligibleAssignee reports whether a user may hold a ticket assignment in an organization:
// an accepted admin-role membership there, or a roster entry. Both sources are authoritative.
func EligibleAssignee(membership *domain.Membership, rostered bool) bool {
	if rostered {
		return true
	}
	return membership.Accepted() && membership.OrgRole == domain.OrgRoleAdmin
}
