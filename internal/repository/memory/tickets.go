package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/repository"
)

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orgs[ticket.OrganizationID]; !ok {
		return repository.ErrNotFound
	}
	ticket.ID = newID()
	ticket.CreatedAt = r.s.now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.s.tickets[ticket.ID] = *ticket.Clone()
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ticket.Clone(), nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.s.tickets {
		if matches(t, filter) {
			out = append(out, *t.Clone())
		}
	}
	// same order as the postgres store: updated_at DESC, id
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})

	limit, offset := filter.Limit, filter.Offset
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 || offset >= len(out) {
		return []domain.Ticket{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func matches(t domain.Ticket, f repository.TicketFilter) bool {
	if t.OrganizationID != f.OrganizationID {
		return false
	}
	if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *f.AssignedTo) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, t.Priority) {
		return false
	}
	if f.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*f.SearchTerm))
		if term != "" && !strings.Contains(strings.ToLower(t.Subject), term) {
			return false
		}
	}
	return true
}

func contains[T comparable](set []T, v T) bool {
	for _, candidate := range set {
		if candidate == v {
			return true
		}
	}
	return false
}

// update applies mutate under the lock if check passes against the stored row.
func (r ticketRepo) update(id string, check func(domain.Ticket) *repository.StaleWriteError, mutate func(*domain.Ticket)) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if stale := check(ticket); stale != nil {
		return nil, stale
	}
	mutate(&ticket)
	ticket.UpdatedAt = r.s.now()
	r.s.tickets[id] = ticket
	return ticket.Clone(), nil
}

func (r ticketRepo) UpdateStatus(_ context.Context, id string, expected, next domain.TicketStatus) (*domain.Ticket, error) {
	return r.update(id, func(t domain.Ticket) *repository.StaleWriteError {
		if t.Status != expected {
			return &repository.StaleWriteError{Field: "status", Expected: string(expected), Actual: string(t.Status)}
		}
		return nil
	}, func(t *domain.Ticket) { t.Status = next })
}

func (r ticketRepo) UpdatePriority(_ context.Context, id string, expected, next domain.TicketPriority) (*domain.Ticket, error) {
	return r.update(id, func(t domain.Ticket) *repository.StaleWriteError {
		if t.Priority != expected {
			return &repository.StaleWriteError{Field: "priority", Expected: string(expected), Actual: string(t.Priority)}
		}
		return nil
	}, func(t *domain.Ticket) { t.Priority = next })
}

func (r ticketRepo) UpdateAssignee(_ context.Context, id string, expected, next *string) (*domain.Ticket, error) {
	return r.update(id, func(t domain.Ticket) *repository.StaleWriteError {
		if repository.NullableString(t.AssignedTo) != repository.NullableString(expected) {
			return &repository.StaleWriteError{Field: "assigned_to", Expected: repository.NullableString(expected), Actual: repository.NullableString(t.AssignedTo)}
		}
		return nil
	}, func(t *domain.Ticket) {
		if next == nil {
			t.AssignedTo = nil
			return
		}
		assignee := *next
		t.AssignedTo = &assignee
	})
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, msg *domain.TicketMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[msg.TicketID]; !ok {
		return repository.ErrNotFound
	}
	msg.ID = newID()
	msg.CreatedAt = r.s.now()
	r.s.messages[msg.TicketID] = append(r.s.messages[msg.TicketID], *msg)
	return nil
}

func (r messageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.TicketMessage(nil), r.s.messages[ticketID]...), nil
}

type auditRepo struct{ s *Store }

func (r auditRepo) Append(_ context.Context, entry *domain.AuditLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.auditFailures > 0 {
		r.s.auditFailures--
		return r.s.auditErr
	}
	entry.ID = newID()
	entry.CreatedAt = r.s.now()
	r.s.audit = append(r.s.audit, *entry)
	return nil
}

func (r auditRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.AuditLogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.AuditLogEntry
	for _, entry := range r.s.audit {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}
