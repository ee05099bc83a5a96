package service

import (
	"context"

	"github.com/helpdesk-io/support-desk/internal/authz"
	"github.com/helpdesk-io/support-desk/internal/domain"
)

// Decide answers an authorization question for the boundary layer, for example
// to decide which controls to show. The answer is computed from a fresh snapshot
// and is advisory only: every mutation checks again before it applies.
// When ticketID is set the organization is taken from the ticket.
func (s *TicketService) Decide(ctx context.Context, principal domain.Principal, action authz.Action, organizationID, ticketID string) (authz.Decision, error) {
	var ticket *domain.Ticket
	if ticketID != "" {
		t, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return authz.Decision{}, storeError(err, "ticket")
		}
		ticket = t
		organizationID = t.OrganizationID
	}
	rc, err := s.snapshots.load(ctx, principal, organizationID, ticket)
	if err != nil {
		return authz.Decision{}, err
	}
	decision := s.snapshots.engine.Authorize(principal, action, rc)
	s.metrics.RecordDecision(string(action), decision.Allowed)
	return decision, nil
}
