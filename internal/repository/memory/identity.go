package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/repository"
)

type userRepo struct{ s *Store }

func (r userRepo) GetSystemRole(_ context.Context, userID string) (domain.SystemRole, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.profiles[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return role, nil
}

type organizationRepo struct{ s *Store }

func (r organizationRepo) Create(_ context.Context, org *domain.Organization, creator *domain.Membership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	org.ID = newID()
	org.CreatedAt = r.s.now()
	r.s.orgs[org.ID] = *org
	creator.OrganizationID = org.ID
	return r.s.insertMembershipLocked(creator)
}

func (r organizationRepo) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	org, ok := r.s.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &org, nil
}

type membershipRepo struct{ s *Store }

func (s *Store) insertMembershipLocked(m *domain.Membership) error {
	for _, existing := range s.memberships {
		if existing.OrganizationID == m.OrganizationID && existing.UserID == m.UserID {
			return fmt.Errorf("%w: memberships_org_user_key", repository.ErrDuplicate)
		}
	}
	m.ID = newID()
	m.CreatedAt = s.now()
	s.memberships[m.ID] = *m
	return nil
}

func (r membershipRepo) Create(_ context.Context, m *domain.Membership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orgs[m.OrganizationID]; !ok {
		return repository.ErrNotFound
	}
	return r.s.insertMembershipLocked(m)
}

func (r membershipRepo) GetByID(_ context.Context, id string) (*domain.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.memberships[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r membershipRepo) GetByOrgAndUser(_ context.Context, orgID, userID string) (*domain.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.memberships {
		if m.OrganizationID == orgID && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r membershipRepo) ListByOrganization(_ context.Context, orgID string) ([]domain.Membership, error) {
	return r.list(func(m domain.Membership) bool { return m.OrganizationID == orgID }), nil
}

func (r membershipRepo) ListByUser(_ context.Context, userID string) ([]domain.Membership, error) {
	return r.list(func(m domain.Membership) bool { return m.UserID == userID }), nil
}

func (r membershipRepo) list(match func(domain.Membership) bool) []domain.Membership {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Membership
	for _, m := range r.s.memberships {
		if match(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r membershipRepo) UpdateStatus(_ context.Context, id string, expected, next domain.MembershipStatus) (*domain.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.memberships[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if m.Status != expected {
		return nil, &repository.StaleWriteError{Field: "status", Expected: string(expected), Actual: string(m.Status)}
	}
	m.Status = next
	r.s.memberships[id] = m
	return &m, nil
}

func (r membershipRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.memberships[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.memberships, id)
	return nil
}

type rosterRepo struct{ s *Store }

func (r rosterRepo) Add(_ context.Context, assoc domain.AgentOrgAssociation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := rosterKey{agentID: assoc.AgentID, orgID: assoc.OrganizationID}
	if _, ok := r.s.roster[key]; ok {
		return fmt.Errorf("%w: agent_organizations_pkey", repository.ErrDuplicate)
	}
	r.s.roster[key] = struct{}{}
	return nil
}

func (r rosterRepo) Remove(_ context.Context, agentID, orgID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := rosterKey{agentID: agentID, orgID: orgID}
	if _, ok := r.s.roster[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.roster, key)
	return nil
}

func (r rosterRepo) Exists(_ context.Context, agentID, orgID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.roster[rosterKey{agentID: agentID, orgID: orgID}]
	return ok, nil
}

func (r rosterRepo) ListByOrganization(_ context.Context, orgID string) ([]domain.AgentOrgAssociation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.AgentOrgAssociation
	for key := range r.s.roster {
		if key.orgID == orgID {
			out = append(out, domain.AgentOrgAssociation{AgentID: key.agentID, OrganizationID: key.orgID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}
