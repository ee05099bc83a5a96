package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/helpdesk-io/support-desk/internal/authz"
	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/events"
	"github.com/helpdesk-io/support-desk/internal/observability"
	"github.com/helpdesk-io/support-desk/internal/repository"
	apperrors "github.com/helpdesk-io/support-desk/pkg/util/errorutil"
)

// snapshotLoader fetches the membership facts a decision needs. It is called
// immediately before every check so no decision outlives the state it was computed from.
type snapshotLoader struct {
	engine      authz.Authorizer
	memberships repository.MembershipRepository
	roster      repository.AgentRosterRepository
	metrics     *observability.Metrics
}

func (l snapshotLoader) load(ctx context.Context, principal domain.Principal, organizationID string, ticket *domain.Ticket) (authz.ResourceContext, error) {
	rc := authz.ResourceContext{OrganizationID: organizationID, Ticket: authz.FactsFor(ticket)}
	if principal.UserID == "" || organizationID == "" {
		return rc, nil
	}

	membership, err := l.memberships.GetByOrgAndUser(ctx, organizationID, principal.UserID)
	switch {
	case err == nil:
		rc.Membership = membership
	case errors.Is(err, repository.ErrNotFound):
	default:
		return rc, apperrors.MapError(err)
	}

	if principal.SystemRole == domain.SystemRoleAgent {
		rostered, err := l.roster.Exists(ctx, principal.UserID, organizationID)
		if err != nil {
			return rc, apperrors.MapError(err)
		}
		rc.AgentRostered = rostered
	}
	return rc, nil
}

// check evaluates action against an already loaded context.
func (l snapshotLoader) check(principal domain.Principal, action authz.Action, rc authz.ResourceContext) error {
	decision := l.engine.Authorize(principal, action, rc)
	l.metrics.RecordDecision(string(action), decision.Allowed)
	if !decision.Allowed {
		return apperrors.NewPermissionDenied(decision.Reason)
	}
	return nil
}

// authorize loads a fresh context and checks action against it.
func (l snapshotLoader) authorize(ctx context.Context, principal domain.Principal, action authz.Action, organizationID string, ticket *domain.Ticket) (authz.ResourceContext, error) {
	rc, err := l.load(ctx, principal, organizationID, ticket)
	if err != nil {
		return rc, err
	}
	return rc, l.check(principal, action, rc)
}

// eligibleAssignee reports whether userID may hold assignments in organizationID.
func (l snapshotLoader) eligibleAssignee(ctx context.Context, organizationID, userID string) (bool, error) {
	membership, err := l.memberships.GetByOrgAndUser(ctx, organizationID, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return false, apperrors.MapError(err)
	}
	rostered, err := l.roster.Exists(ctx, userID, organizationID)
	if err != nil {
		return false, apperrors.MapError(err)
	}
	return authz.EligibleAssignee(membership, rostered), nil
}

// storeError maps repository failures onto the error taxonomy.
func storeError(err error, entity string) error {
	var stale *repository.StaleWriteError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &stale):
		return apperrors.NewConflict(stale.Field+" was changed concurrently", stale.Expected, stale.Actual)
	case errors.Is(err, repository.ErrNotFound), apperrors.IsMalformedValue(err):
		return apperrors.NewNotFound(entity, nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(entity+" already exists", nil, nil)
	}
	return apperrors.MapError(err)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}

func strPtr(s string) *string { return &s }
