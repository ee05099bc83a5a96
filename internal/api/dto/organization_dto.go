package dto

import (
	"time"

	"github.com/helpdesk-io/support-desk/internal/domain"
)

// CreateOrganizationRequest payload.
type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

// InviteRequest payload. OrgRole defaults to member.
type InviteRequest struct {
	UserID  string         `json:"user_id"`
	OrgRole domain.OrgRole `json:"org_role"`
}

// RespondInvitationRequest payload.
type RespondInvitationRequest struct {
	Decision domain.InvitationDecision `json:"decision"`
}

// RosterRequest payload.
type RosterRequest struct {
	AgentID string `json:"agent_id"`
}

// OrganizationResponse representation.
type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// MembershipResponse representation.
type MembershipResponse struct {
	ID             string                  `json:"id"`
	OrganizationID string                  `json:"organization_id"`
	UserID         string                  `json:"user_id"`
	OrgRole        domain.OrgRole          `json:"org_role"`
	Status         domain.MembershipStatus `json:"status"`
	IsCreator      bool                    `json:"is_creator"`
	CreatedAt      time.Time               `json:"created_at"`
}

// RosterEntryResponse representation.
type RosterEntryResponse struct {
	AgentID        string `json:"agent_id"`
	OrganizationID string `json:"organization_id"`
}

// NewOrganizationResponse maps an organization.
func NewOrganizationResponse(o *domain.Organization) OrganizationResponse {
	return OrganizationResponse{ID: o.ID, Name: o.Name, CreatedAt: o.CreatedAt}
}

// NewMembershipResponse maps a membership.
func NewMembershipResponse(m *domain.Membership) MembershipResponse {
	return MembershipResponse{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		OrgRole:        m.OrgRole,
		Status:         m.Status,
		IsCreator:      m.IsCreator,
		CreatedAt:      m.CreatedAt,
	}
}
