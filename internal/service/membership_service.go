package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/helpdesk-io/support-desk/internal/authz"
	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/events"
	"github.com/helpdesk-io/support-desk/internal/observability"
	"github.com/helpdesk-io/support-desk/internal/repository"
	apperrors "github.com/helpdesk-io/support-desk/pkg/util/errorutil"
)

// MembershipService manages organizations, invitations and the agent roster.
type MembershipService struct {
	snapshots   snapshotLoader
	orgs        repository.OrganizationRepository
	memberships repository.MembershipRepository
	roster      repository.AgentRosterRepository
	users       repository.UserRepository
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// MembershipDependencies bundles collaborators for the membership service.
type MembershipDependencies struct {
	Engine         authz.Authorizer
	OrgRepo        repository.OrganizationRepository
	MembershipRepo repository.MembershipRepository
	RosterRepo     repository.AgentRosterRepository
	UserRepo       repository.UserRepository
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewMembershipService constructs the service.
func NewMembershipService(deps MembershipDependencies) *MembershipService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := deps.Engine
	if engine == nil {
		engine = authz.NewEngine()
	}
	return &MembershipService{
		snapshots: snapshotLoader{
			engine:      engine,
			memberships: deps.MembershipRepo,
			roster:      deps.RosterRepo,
			metrics:     deps.Metrics,
		},
		orgs:        deps.OrgRepo,
		memberships: deps.MembershipRepo,
		roster:      deps.RosterRepo,
		users:       deps.UserRepo,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
	}
}

// CreateOrganization creates an organization with principal as its accepted owner.
func (s *MembershipService) CreateOrganization(ctx context.Context, principal domain.Principal, name string) (*domain.Organization, *domain.Membership, error) {
	if principal.UserID == "" {
		return nil, nil, apperrors.NewPermissionDenied(authz.ReasonMissingPrincipal)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, apperrors.NewValidationError("name", "required")
	}

	org := &domain.Organization{Name: name}
	creator := &domain.Membership{
		UserID:    principal.UserID,
		OrgRole:   domain.OrgRoleOwner,
		Status:    domain.MembershipAccepted,
		IsCreator: true,
	}
	if err := s.orgs.Create(ctx, org, creator); err != nil {
		return nil, nil, storeError(err, "organization")
	}

	s.logger.Info("organization created", zap.String("organization_id", org.ID), zap.String("user_id", principal.UserID))
	publish(ctx, s.dispatcher, events.Event{
		Type:           events.EventOrganizationCreated,
		OrganizationID: org.ID,
		ActorID:        principal.UserID,
	})
	return org, creator, nil
}

// Invite creates a pending membership for inviteeID. Any existing membership
// for the pair, whatever its status, is a Conflict.
func (s *MembershipService) Invite(ctx context.Context, organizationID, inviteeID string, role domain.OrgRole, principal domain.Principal) (*domain.Membership, error) {
	inviteeID = strings.TrimSpace(inviteeID)
	if inviteeID == "" {
		return nil, apperrors.NewValidationError("user_id", "required")
	}
	if role == "" {
		role = domain.OrgRoleMember
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("org_role", "unknown role")
	}
	if role == domain.OrgRoleOwner {
		return nil, apperrors.NewValidationError("org_role", "owner cannot be invited")
	}
	if _, err := s.orgs.GetByID(ctx, organizationID); err != nil {
		return nil, storeError(err, "organization")
	}
	if _, err := s.snapshots.authorize(ctx, principal, authz.ManageOrganization, organizationID, nil); err != nil {
		return nil, err
	}

	m := &domain.Membership{
		OrganizationID: organizationID,
		UserID:         inviteeID,
		OrgRole:        role,
		Status:         domain.MembershipPending,
	}
	if err := s.memberships.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.alreadyInvited(ctx, organizationID, inviteeID)
		}
		return nil, storeError(err, "membership")
	}

	s.metrics.RecordTransition("invitation")
	s.logger.Info("membership invited",
		zap.String("organization_id", organizationID),
		zap.String("membership_id", m.ID),
		zap.String("user_id", inviteeID),
		zap.String("invited_by", principal.UserID))
	s.publishMembership(ctx, events.EventMembershipInvited, principal, m)
	return m, nil
}

func (s *MembershipService) alreadyInvited(ctx context.Context, organizationID, userID string) error {
	var actual any
	if existing, err := s.memberships.GetByOrgAndUser(ctx, organizationID, userID); err == nil {
		actual = existing.Status
	}
	return apperrors.NewConflict("already invited", nil, actual)
}

// RespondToInvitation accepts or rejects a pending invitation. Only the invitee
// may respond, whatever their system role; a resolved invitation is a Conflict.
func (s *MembershipService) RespondToInvitation(ctx context.Context, membershipID string, principal domain.Principal, decision domain.InvitationDecision) (*domain.Membership, error) {
	var next domain.MembershipStatus
	switch decision {
	case domain.DecisionAccept:
		next = domain.MembershipAccepted
	case domain.DecisionReject:
		next = domain.MembershipRejected
	default:
		return nil, apperrors.NewValidationError("decision", "must be accept or reject")
	}

	m, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return nil, storeError(err, "membership")
	}
	if m.UserID != principal.UserID {
		s.metrics.RecordDecision(string(authz.RespondToInvitation), false)
		return nil, apperrors.NewPermissionDenied(authz.ReasonNotInvitee)
	}
	rc := authz.ResourceContext{OrganizationID: m.OrganizationID, InviteeID: m.UserID}
	if err := s.snapshots.check(principal, authz.RespondToInvitation, rc); err != nil {
		return nil, err
	}
	if m.Status != domain.MembershipPending {
		return nil, apperrors.NewConflict("invitation already resolved", domain.MembershipPending, m.Status)
	}

	updated, err := s.memberships.UpdateStatus(ctx, m.ID, domain.MembershipPending, next)
	if err != nil {
		return nil, storeError(err, "membership")
	}

	s.metrics.RecordTransition("invitation_response")
	s.logger.Info("invitation answered",
		zap.String("organization_id", updated.OrganizationID),
		zap.String("membership_id", updated.ID),
		zap.String("user_id", principal.UserID),
		zap.String("status", string(updated.Status)))
	s.publishMembership(ctx, events.EventMembershipResponded, principal, updated)
	return updated, nil
}

// ListInvitations returns the principal's memberships in every organization, pending ones included.
func (s *MembershipService) ListInvitations(ctx context.Context, principal domain.Principal) ([]domain.Membership, error) {
	memberships, err := s.memberships.ListByUser(ctx, principal.UserID)
	if err != nil {
		return nil, storeError(err, "membership")
	}
	return memberships, nil
}

// ListMembers returns every membership of an organization.
func (s *MembershipService) ListMembers(ctx context.Context, organizationID string, principal domain.Principal) ([]domain.Membership, error) {
	if _, err := s.snapshots.authorize(ctx, principal, authz.ManageOrganization, organizationID, nil); err != nil {
		return nil, err
	}
	memberships, err := s.memberships.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, storeError(err, "membership")
	}
	return memberships, nil
}

// RemoveMember deletes a membership. The organization creator cannot be removed.
func (s *MembershipService) RemoveMember(ctx context.Context, organizationID, userID string, principal domain.Principal) error {
	if _, err := s.snapshots.authorize(ctx, principal, authz.ManageOrganization, organizationID, nil); err != nil {
		return err
	}
	m, err := s.memberships.GetByOrgAndUser(ctx, organizationID, userID)
	if err != nil {
		return storeError(err, "membership")
	}
	if m.IsCreator {
		return apperrors.NewValidationError("user_id", "organization creator cannot be removed")
	}
	if err := s.memberships.Delete(ctx, m.ID); err != nil {
		return storeError(err, "membership")
	}

	s.logger.Info("member removed",
		zap.String("organization_id", organizationID),
		zap.String("user_id", userID),
		zap.String("removed_by", principal.UserID))
	s.publishMembership(ctx, events.EventMemberRemoved, principal, m)
	return nil
}

// AddAgentToOrganization adds agentID to the organization's roster. System admins only.
func (s *MembershipService) AddAgentToOrganization(ctx context.Context, organizationID, agentID string, principal domain.Principal) error {
	if err := s.requireSystemAdmin(principal); err != nil {
		return err
	}
	if _, err := s.orgs.GetByID(ctx, organizationID); err != nil {
		return storeError(err, "organization")
	}
	role, err := s.users.GetSystemRole(ctx, agentID)
	if err != nil {
		return storeError(err, "user")
	}
	if role != domain.SystemRoleAgent {
		return apperrors.NewValidationError("agent_id", "not an agent")
	}
	if err := s.roster.Add(ctx, domain.AgentOrgAssociation{AgentID: agentID, OrganizationID: organizationID}); err != nil {
		return storeError(err, "roster entry")
	}
	s.logger.Info("agent rostered", zap.String("organization_id", organizationID), zap.String("agent_id", agentID))
	return nil
}

// RemoveAgentFromOrganization drops agentID from the roster. System admins only.
func (s *MembershipService) RemoveAgentFromOrganization(ctx context.Context, organizationID, agentID string, principal domain.Principal) error {
	if err := s.requireSystemAdmin(principal); err != nil {
		return err
	}
	if err := s.roster.Remove(ctx, agentID, organizationID); err != nil {
		return storeError(err, "roster entry")
	}
	s.logger.Info("agent unrostered", zap.String("organization_id", organizationID), zap.String("agent_id", agentID))
	return nil
}

// ListRoster returns the organization's roster. System admins only.
func (s *MembershipService) ListRoster(ctx context.Context, organizationID string, principal domain.Principal) ([]domain.AgentOrgAssociation, error) {
	if err := s.requireSystemAdmin(principal); err != nil {
		return nil, err
	}
	entries, err := s.roster.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, storeError(err, "roster entry")
	}
	return entries, nil
}

func (s *MembershipService) requireSystemAdmin(principal domain.Principal) error {
	if principal.SystemRole != domain.SystemRoleAdmin {
		return apperrors.NewPermissionDenied(authz.ReasonInsufficientRole)
	}
	return nil
}

func (s *MembershipService) publishMembership(ctx context.Context, eventType events.EventType, principal domain.Principal, m *domain.Membership) {
	publish(ctx, s.dispatcher, events.Event{
		Type:           eventType,
		OrganizationID: m.OrganizationID,
		ActorID:        principal.UserID,
		Payload: events.MembershipPayload{
			MembershipID: m.ID,
			UserID:       m.UserID,
			OrgRole:      m.OrgRole,
			Status:       m.Status,
		},
	})
}
