package domain

import "time"

// OrgRole is the role a user holds inside one organization.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// Valid reports whether r is a known org role.
func (r OrgRole) Valid() bool {
	switch r {
	case OrgRoleOwner, OrgRoleAdmin, OrgRoleMember:
		return true
	}
	return false
}

// MembershipStatus tracks the invitation lifecycle. Accepted and rejected are terminal.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipAccepted MembershipStatus = "accepted"
	MembershipRejected MembershipStatus = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s MembershipStatus) Terminal() bool {
	return s == MembershipAccepted || s == MembershipRejected
}

// Membership links a user to an organization; it doubles as the invitation while pending.
type Membership struct {
	ID             string
	OrganizationID string
	UserID         string
	OrgRole        OrgRole
	Status         MembershipStatus
	IsCreator      bool
	CreatedAt      time.Time
}

// Accepted reports whether the membership currently grants organization privileges.
func (m *Membership) Accepted() bool {
	return m != nil && m.Status == MembershipAccepted
}

// InvitationDecision is the invitee's answer.
type InvitationDecision string

const (
	DecisionAccept InvitationDecision = "accept"
	DecisionReject InvitationDecision = "reject"
)
