package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-io/support-desk/internal/audit"
	"github.com/helpdesk-io/support-desk/internal/authz"
	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/events"
	"github.com/helpdesk-io/support-desk/internal/observability"
	"github.com/helpdesk-io/support-desk/internal/repository/memory"
)

var (
	owner  = domain.Principal{UserID: "owner", SystemRole: domain.SystemRoleUser}
	member = domain.Principal{UserID: "member", SystemRole: domain.SystemRoleUser}
	agent  = domain.Principal{UserID: "agent", SystemRole: domain.SystemRoleAgent}
	root   = domain.Principal{UserID: "root", SystemRole: domain.SystemRoleAdmin}
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store       *memory.Store
	tickets     *TicketService
	memberships *MembershipService
	recorded    *recorder
	orgID       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	for _, p := range []domain.Principal{owner, member, agent, root} {
		store.PutProfile(p.UserID, p.SystemRole)
	}

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	rec := &recorder{}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, rec.handle)
	}
	engine := authz.NewEngine()

	f := &fixture{
		store:    store,
		recorded: rec,
		tickets: NewTicketService(TicketDependencies{
			Engine:         engine,
			TicketRepo:     store.Tickets(),
			MessageRepo:    store.TicketMessages(),
			OrgRepo:        store.Organizations(),
			MembershipRepo: store.Memberships(),
			RosterRepo:     store.AgentRoster(),
			Audit:          audit.NewWriter(store.AuditLog(), logger, metrics, dispatcher, audit.Options{MaxAttempts: 3}),
			Dispatcher:     dispatcher,
			Metrics:        metrics,
			Logger:         logger,
		}),
		memberships: NewMembershipService(MembershipDependencies{
			Engine:         engine,
			OrgRepo:        store.Organizations(),
			MembershipRepo: store.Memberships(),
			RosterRepo:     store.AgentRoster(),
			UserRepo:       store.Users(),
			Dispatcher:     dispatcher,
			Metrics:        metrics,
			Logger:         logger,
		}),
	}

	org, _, err := f.memberships.CreateOrganization(context.Background(), owner, "Acme")
	require.NoError(t, err)
	f.orgID = org.ID
	return f
}

// join invites userID with role and accepts on their behalf.
func (f *fixture) join(t *testing.T, p domain.Principal, role domain.OrgRole) *domain.Membership {
	t.Helper()
	ctx := context.Background()
	invite, err := f.memberships.Invite(ctx, f.orgID, p.UserID, role, owner)
	require.NoError(t, err)
	accepted, err := f.memberships.RespondToInvitation(ctx, invite.ID, p, domain.DecisionAccept)
	require.NoError(t, err)
	return accepted
}

func (f *fixture) openTicket(t *testing.T, by domain.Principal) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(context.Background(), by, TicketCreateInput{
		OrganizationID: f.orgID,
		Subject:        "Printer on fire",
		Category:       "hardware",
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) auditEntries(t *testing.T, ticketID string) []domain.AuditLogEntry {
	t.Helper()
	entries, err := f.store.AuditLog().ListByTicket(context.Background(), ticketID)
	require.NoError(t, err)
	return entries
}
