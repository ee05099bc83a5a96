// Package memory is an in-process implementation of the repository contracts.
// It keeps the same conditional-write and uniqueness semantics as the Postgres store
// and is used when no DSN is configured and by service tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/repository"
)

// Store holds every table behind one lock.
type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	profiles    map[string]domain.SystemRole
	orgs        map[string]domain.Organization
	memberships map[string]domain.Membership
	roster      map[rosterKey]struct{}
	tickets     map[string]domain.Ticket
	messages    map[string][]domain.TicketMessage
	audit       []domain.AuditLogEntry

	auditFailures int
	auditErr      error
}

type rosterKey struct {
	agentID string
	orgID   string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		profiles:    make(map[string]domain.SystemRole),
		orgs:        make(map[string]domain.Organization),
		memberships: make(map[string]domain.Membership),
		roster:      make(map[rosterKey]struct{}),
		tickets:     make(map[string]domain.Ticket),
		messages:    make(map[string][]domain.TicketMessage),
	}
}

// SetClock replaces the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// PutProfile registers a principal's system role.
func (s *Store) PutProfile(userID string, role domain.SystemRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = role
}

// FailAuditAppends makes the next n audit appends fail with err.
func (s *Store) FailAuditAppends(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditFailures = n
	s.auditErr = err
}

func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) Organizations() repository.OrganizationRepository { return organizationRepo{s} }
func (s *Store) Memberships() repository.MembershipRepository { return membershipRepo{s} }
func (s *Store) AgentRoster() repository.AgentRosterRepository { return rosterRepo{s} }
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }
func (s *Store) TicketMessages() repository.TicketMessageRepository { return messageRepo{s} }
func (s *Store) AuditLog() repository.AuditLogRepository { return auditRepo{s} }

func newID() string {
	return uuid.NewString()
}
