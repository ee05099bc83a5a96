package domain

import "time"

// Organization is a tenant. Immutable once created.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// AgentOrgAssociation marks an agent as servicing an organization.
type AgentOrgAssociation struct {
	AgentID        string
	OrganizationID string
}
