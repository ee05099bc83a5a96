package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-io/support-desk/internal/authz"
	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/events"
	apperrors "github.com/helpdesk-io/support-desk/pkg/util/errorutil"
)

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)
	f.join(t, member, domain.OrgRoleMember)

	ticket := f.openTicket(t, member)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, member.UserID, ticket.CreatedBy)
	assert.Len(t, f.recorded.ofType(events.EventTicketCreated), 1)

	t.Run("outsider denied", func(t *testing.T) {
		stranger := domain.Principal{UserID: "stranger", SystemRole: domain.SystemRoleUser}
		_, err := f.tickets.CreateTicket(context.Background(), stranger, TicketCreateInput{OrganizationID: f.orgID, Subject: "hi"})
		assert.True(t, apperrors.IsPermissionDenied(err))
	})

	t.Run("validation", func(t *testing.T) {
		_, err := f.tickets.CreateTicket(context.Background(), member, TicketCreateInput{OrganizationID: f.orgID, Subject: "  "})
		assert.True(t, apperrors.IsValidation(err))
		_, err = f.tickets.CreateTicket(context.Background(), member, TicketCreateInput{OrganizationID: f.orgID, Subject: "x", Priority: "urgent"})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown organization", func(t *testing.T) {
		_, err := f.tickets.CreateTicket(context.Background(), member, TicketCreateInput{OrganizationID: "nope", Subject: "x"})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

// Scenario A: an accepted member cannot change the status of their own ticket.
func TestTransitionStatus_MemberDenied(t *testing.T) {
	f := newFixture(t)
	f.join(t, member, domain.OrgRoleMember)
	ticket := f.openTicket(t, member)

	_, err := f.tickets.TransitionStatus(context.Background(), ticket, domain.TicketStatusClosed, member)
	require.Error(t, err)
	assert.True(t, apperrors.IsPermissionDenied(err))
	assert.Empty(t, f.auditEntries(t, ticket.ID))

	stored, err := f.store.Tickets().GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
}

// Scenario B: an agent holding an accepted admin membership moves a ticket to in_progress.
func TestTransitionStatus_AgentWithAdminMembership(t *testing.T) {
	f := newFixture(t)
	f.join(t, member, domain.OrgRoleMember)
	f.join(t, agent, domain.OrgRoleAdmin)
	ticket := f.openTicket(t, member)

	updated, err := f.tickets.TransitionStatus(context.Background(), ticket, domain.TicketStatusInProgress, agent)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	entries := f.auditEntries(t, ticket.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditStatusChange, entries[0].EventType)
	assert.Equal(t, "open", *entries[0].FromValue)
	assert.Equal(t, "in_progress", *entries[0].ToValue)
	assert.Equal(t, agent.UserID, entries[0].UserID)
	assert.Len(t, f.recorded.ofType(events.EventTicketStatusChanged), 1)
}

func TestTransitionStatus_AgentWithoutEligibilityDenied(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t, owner)

	_, err := f.tickets.TransitionStatus(context.Background(), ticket, domain.TicketStatusClosed, agent)
	assert.True(t, apperrors.IsPermissionDenied(err))

	require.NoError(t, f.memberships.AddAgentToOrganization(context.Background(), f.orgID, agent.UserID, root))
	_, err = f.tickets.TransitionStatus(context.Background(), ticket, domain.TicketStatusClosed, agent)
	assert.NoError(t, err)
}

// Scenario D: two transitions race from the same snapshot; one wins, one conflicts.
func TestTransitionStatus_ConcurrentConflict(t *testing.T) {
	f := newFixture(t)
	f.join(t, agent, domain.OrgRoleAdmin)
	ticket := f.openTicket(t, owner)

	targets := []domain.TicketStatus{domain.TicketStatusClosed, domain.TicketStatusInProgress}
	errs := make([]error, len(targets))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target domain.TicketStatus) {
			defer wg.Done()
			<-start
			_, errs[i] = f.tickets.TransitionStatus(context.Background(), ticket.Clone(), target, agent)
		}(i, target)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperrors.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	entries := f.auditEntries(t, ticket.ID)
	require.Len(t, entries, 1)
	stored, err := f.store.Tickets().GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, string(stored.Status), *entries[0].ToValue)
}

func TestTransitionStatus_StaleSnapshot(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t, owner)

	_, err := f.tickets.TransitionStatus(context.Background(), ticket, domain.TicketStatusInProgress, owner)
	require.NoError(t, err)

	// ticket still says open
	_, err = f.tickets.TransitionStatus(context.Background(), ticket, domain.TicketStatusClosed, owner)
	require.True(t, apperrors.IsConflict(err))
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "open", domainErr.Details["expected"])
	assert.Equal(t, "in_progress", domainErr.Details["actual"])
	assert.Len(t, f.auditEntries(t, ticket.ID), 1)
}

func TestTransitionStatus_Validation(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t, owner)

	_, err := f.tickets.TransitionStatus(context.Background(), ticket, domain.TicketStatus("resolved"), owner)
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.tickets.TransitionStatus(context.Background(), ticket, domain.TicketStatusOpen, owner)
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.tickets.TransitionStatus(context.Background(), nil, domain.TicketStatusOpen, owner)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTransitionStatus_RevokedMembershipRechecked(t *testing.T) {
	f := newFixture(t)
	f.join(t, agent, domain.OrgRoleAdmin)
	ticket := f.openTicket(t, owner)

	// the agent saw the ticket while still a member
	require.NoError(t, f.memberships.RemoveMember(context.Background(), f.orgID, agent.UserID, owner))

	_, err := f.tickets.TransitionStatus(context.Background(), ticket, domain.TicketStatusClosed, agent)
	assert.True(t, apperrors.IsPermissionDenied(err))
}

func TestTransitionStatus_AuditDegraded(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t, owner)
	f.store.FailAuditAppends(3, apperrors.NewTransientStoreError(errors.New("connection reset")))

	updated, err := f.tickets.TransitionStatus(context.Background(), ticket, domain.TicketStatusClosed, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)

	assert.Empty(t, f.auditEntries(t, ticket.ID))
	incidents := f.recorded.ofType(events.EventAuditDegraded)
	require.Len(t, incidents, 1)
	assert.Equal(t, ticket.ID, incidents[0].TicketID)
}

func TestTransitionPriority(t *testing.T) {
	f := newFixture(t)
	f.join(t, member, domain.OrgRoleMember)
	ticket := f.openTicket(t, member)

	_, err := f.tickets.TransitionPriority(context.Background(), ticket, domain.TicketPriorityHigh, member)
	assert.True(t, apperrors.IsPermissionDenied(err))

	updated, err := f.tickets.TransitionPriority(context.Background(), ticket, domain.TicketPriorityHigh, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)

	entries := f.auditEntries(t, ticket.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditPriorityChange, entries[0].EventType)
	assert.Equal(t, "medium", *entries[0].FromValue)
	assert.Equal(t, "high", *entries[0].ToValue)

	_, err = f.tickets.TransitionPriority(context.Background(), updated, domain.TicketPriority("critical"), owner)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	f.join(t, member, domain.OrgRoleMember)
	ticket := f.openTicket(t, member)

	t.Run("member not eligible", func(t *testing.T) {
		_, err := f.tickets.Assign(context.Background(), ticket, &member.UserID, owner)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("rostered agent", func(t *testing.T) {
		require.NoError(t, f.memberships.AddAgentToOrganization(context.Background(), f.orgID, agent.UserID, root))
		updated, err := f.tickets.Assign(context.Background(), ticket, &agent.UserID, owner)
		require.NoError(t, err)
		require.NotNil(t, updated.AssignedTo)
		assert.Equal(t, agent.UserID, *updated.AssignedTo)

		entries := f.auditEntries(t, ticket.ID)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.AuditAssignmentChange, entries[0].EventType)
		assert.Nil(t, entries[0].FromValue)
		assert.Equal(t, agent.UserID, *entries[0].ToValue)
		ticket = updated
	})

	t.Run("unassign", func(t *testing.T) {
		updated, err := f.tickets.Assign(context.Background(), ticket, nil, owner)
		require.NoError(t, err)
		assert.Nil(t, updated.AssignedTo)

		entries := f.auditEntries(t, ticket.ID)
		require.Len(t, entries, 2)
		assert.Equal(t, agent.UserID, *entries[1].FromValue)
		assert.Nil(t, entries[1].ToValue)

		_, err = f.tickets.Assign(context.Background(), updated, nil, owner)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("member cannot assign", func(t *testing.T) {
		_, err := f.tickets.Assign(context.Background(), ticket, &agent.UserID, member)
		assert.True(t, apperrors.IsPermissionDenied(err))
	})
}

func TestSelfAssign(t *testing.T) {
	f := newFixture(t)
	f.join(t, agent, domain.OrgRoleAdmin)
	ticket := f.openTicket(t, owner)

	updated, err := f.tickets.SelfAssign(context.Background(), ticket, agent)
	require.NoError(t, err)
	assert.Equal(t, agent.UserID, *updated.AssignedTo)
}

// Scenario E: a plain member never sees internal notes.
func TestListMessages_HidesInternalFromMembers(t *testing.T) {
	f := newFixture(t)
	f.join(t, member, domain.OrgRoleMember)
	ticket := f.openTicket(t, member)
	ctx := context.Background()

	_, err := f.tickets.AddMessage(ctx, member, ticket.ID, domain.MessageTypePublic, "it is still burning")
	require.NoError(t, err)
	_, err = f.tickets.AddMessage(ctx, owner, ticket.ID, domain.MessageTypeInternal, "customer keeps lighters near it")
	require.NoError(t, err)

	_, err = f.tickets.AddMessage(ctx, member, ticket.ID, domain.MessageTypeInternal, "sneaky")
	assert.True(t, apperrors.IsPermissionDenied(err))

	visible, err := f.tickets.ListMessages(ctx, member, ticket.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, domain.MessageTypePublic, visible[0].MessageType)

	all, err := f.tickets.ListMessages(ctx, owner, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAddMessage_Validation(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t, owner)

	_, err := f.tickets.AddMessage(context.Background(), owner, ticket.ID, domain.MessageTypeSystem, "hello")
	assert.True(t, apperrors.IsValidation(err))
	_, err = f.tickets.AddMessage(context.Background(), owner, ticket.ID, domain.MessageTypePublic, " ")
	assert.True(t, apperrors.IsValidation(err))
	_, err = f.tickets.AddMessage(context.Background(), owner, "missing", domain.MessageTypePublic, "hello")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListTickets_MembersSeeOwnOnly(t *testing.T) {
	f := newFixture(t)
	f.join(t, member, domain.OrgRoleMember)
	mine := f.openTicket(t, member)
	f.openTicket(t, owner)
	ctx := context.Background()

	own, err := f.tickets.ListTickets(ctx, member, TicketListFilter{OrganizationID: f.orgID})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	all, err := f.tickets.ListTickets(ctx, owner, TicketListFilter{OrganizationID: f.orgID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	stranger := domain.Principal{UserID: "stranger", SystemRole: domain.SystemRoleUser}
	_, err = f.tickets.ListTickets(ctx, stranger, TicketListFilter{OrganizationID: f.orgID})
	assert.True(t, apperrors.IsPermissionDenied(err))
}

func TestGetTicketAndAuditLog(t *testing.T) {
	f := newFixture(t)
	f.join(t, member, domain.OrgRoleMember)
	ticket := f.openTicket(t, owner)
	ctx := context.Background()

	_, err := f.tickets.GetTicket(ctx, member, ticket.ID)
	require.True(t, apperrors.IsPermissionDenied(err))
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, authz.ReasonNotTicketCreator, domainErr.Details["reason"])

	_, err = f.tickets.TransitionStatus(ctx, ticket, domain.TicketStatusClosed, owner)
	require.NoError(t, err)
	entries, err := f.tickets.ListAuditLog(ctx, owner, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = f.tickets.GetTicket(ctx, owner, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDecide(t *testing.T) {
	f := newFixture(t)
	f.join(t, member, domain.OrgRoleMember)
	ticket := f.openTicket(t, member)
	ctx := context.Background()

	d, err := f.tickets.Decide(ctx, member, authz.UpdateTicketStatus, "", ticket.ID)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, authz.ReasonInsufficientRole, d.Reason)

	d, err = f.tickets.Decide(ctx, member, authz.ViewTicket, "", ticket.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = f.tickets.Decide(ctx, owner, authz.ManageOrganization, f.orgID, "")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	_, err = f.tickets.Decide(ctx, owner, authz.ViewTicket, "", "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

// The caller's copy of the ticket only supplies expected values; the
// organization used for authorization is always the stored one.
func TestTransitions_IgnoreCallerOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.openTicket(t, owner)

	mallory := domain.Principal{UserID: "mallory", SystemRole: domain.SystemRoleUser}
	f.store.PutProfile(mallory.UserID, mallory.SystemRole)
	other, _, err := f.memberships.CreateOrganization(ctx, mallory, "Elsewhere")
	require.NoError(t, err)

	forged := *ticket
	forged.OrganizationID = other.ID

	_, err = f.tickets.TransitionStatus(ctx, &forged, domain.TicketStatusClosed, mallory)
	assert.True(t, apperrors.IsPermissionDenied(err))
	_, err = f.tickets.TransitionPriority(ctx, &forged, domain.TicketPriorityHigh, mallory)
	assert.True(t, apperrors.IsPermissionDenied(err))
	_, err = f.tickets.Assign(ctx, &forged, &mallory.UserID, mallory)
	assert.True(t, apperrors.IsPermissionDenied(err))

	stored, err := f.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, f.orgID, stored.OrganizationID)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Equal(t, domain.TicketPriorityMedium, stored.Priority)
	assert.Nil(t, stored.AssignedTo)
	assert.Empty(t, f.auditEntries(t, ticket.ID))

	forged.ID = "missing"
	_, err = f.tickets.TransitionStatus(ctx, &forged, domain.TicketStatusClosed, owner)
	assert.True(t, apperrors.IsNotFound(err))
}
