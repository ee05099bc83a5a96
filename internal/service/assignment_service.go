package service

import (
	"context"
	"strings"

	"github.com/helpdesk-io/support-desk/internal/authz"
	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/events"
	"github.com/helpdesk-io/support-desk/internal/repository"
	apperrors "github.com/helpdesk-io/support-desk/pkg/util/errorutil"
)

// Assign sets or clears the ticket's assignee. A non-nil agentID must be an
// eligible assignee in the ticket's organization: an accepted admin membership
// there, or a roster entry. ticket is the state the caller acted on.
func (s *TicketService) Assign(ctx context.Context, ticket *domain.Ticket, agentID *string, principal domain.Principal) (*domain.Ticket, error) {
	var next *string
	if agentID != nil {
		trimmed := strings.TrimSpace(*agentID)
		if trimmed == "" {
			return nil, apperrors.NewValidationError("assigned_to", "empty")
		}
		next = &trimmed
	}

	stored, err := s.current(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if _, err := s.snapshots.authorize(ctx, principal, authz.AssignTicket, stored.OrganizationID, stored); err != nil {
		return nil, err
	}
	if repository.NullableString(next) == repository.NullableString(ticket.AssignedTo) {
		return nil, apperrors.NewValidationError("assigned_to", "unchanged")
	}
	if next != nil {
		eligible, err := s.snapshots.eligibleAssignee(ctx, stored.OrganizationID, *next)
		if err != nil {
			return nil, err
		}
		if !eligible {
			return nil, apperrors.NewValidationError("assigned_to", "not eligible")
		}
	}

	updated, err := s.tickets.UpdateAssignee(ctx, ticket.ID, ticket.AssignedTo, next)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	s.committed(ctx, principal, updated, fieldChange{
		kind:  "assignment",
		audit: domain.AuditAssignmentChange,
		event: events.EventTicketAssigned,
		from:  copyOptional(ticket.AssignedTo),
		to:    copyOptional(next),
	})
	return updated, nil
}

// SelfAssign assigns the ticket to the calling principal.
func (s *TicketService) SelfAssign(ctx context.Context, ticket *domain.Ticket, principal domain.Principal) (*domain.Ticket, error) {
	return s.Assign(ctx, ticket, &principal.UserID, principal)
}

func copyOptional(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
