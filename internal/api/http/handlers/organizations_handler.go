package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-io/support-desk/internal/api/dto"
	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/service"
	apperrors "github.com/helpdesk-io/support-desk/pkg/util/errorutil"
)

// OrganizationsHandler exposes organizations, invitations and the agent roster.
type OrganizationsHandler struct {
	service *service.MembershipService
}

// NewOrganizationsHandler constructs handler.
func NewOrganizationsHandler(membershipService *service.MembershipService) *OrganizationsHandler {
	return &OrganizationsHandler{service: membershipService}
}

// CreateOrganization POST /organizations.
func (h *OrganizationsHandler) CreateOrganization(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	org, creator, err := h.service.CreateOrganization(c.UserContext(), principal, req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"organization": dto.NewOrganizationResponse(org),
		"membership":   dto.NewMembershipResponse(creator),
	}})
}

// ListMembers GET /organizations/:orgID/members.
func (h *OrganizationsHandler) ListMembers(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	memberships, err := h.service.ListMembers(c.UserContext(), c.Params("orgID"), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": membershipResponses(memberships)})
}

// Invite POST /organizations/:orgID/invitations.
func (h *OrganizationsHandler) Invite(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.InviteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	m, err := h.service.Invite(c.UserContext(), c.Params("orgID"), req.UserID, req.OrgRole, principal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMembershipResponse(m)})
}

// RemoveMember DELETE /organizations/:orgID/members/:userID.
func (h *OrganizationsHandler) RemoveMember(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.RemoveMember(c.UserContext(), c.Params("orgID"), c.Params("userID"), principal); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListInvitations GET /me/invitations.
func (h *OrganizationsHandler) ListInvitations(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	memberships, err := h.service.ListInvitations(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": membershipResponses(memberships)})
}

// RespondToInvitation POST /invitations/:id/respond.
func (h *OrganizationsHandler) RespondToInvitation(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RespondInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	m, err := h.service.RespondToInvitation(c.UserContext(), c.Params("id"), principal, req.Decision)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMembershipResponse(m)})
}

// AddAgent POST /organizations/:orgID/agents.
func (h *OrganizationsHandler) AddAgent(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RosterRequest
	if err := c.BodyParser(&req); err != nil || req.AgentID == "" {
		return apperrors.NewValidationError("agent_id", "required")
	}
	if err := h.service.AddAgentToOrganization(c.UserContext(), c.Params("orgID"), req.AgentID, principal); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.RosterEntryResponse{
		AgentID:        req.AgentID,
		OrganizationID: c.Params("orgID"),
	}})
}

// RemoveAgent DELETE /organizations/:orgID/agents/:agentID.
func (h *OrganizationsHandler) RemoveAgent(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.RemoveAgentFromOrganization(c.UserContext(), c.Params("orgID"), c.Params("agentID"), principal); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListAgents GET /organizations/:orgID/agents.
func (h *OrganizationsHandler) ListAgents(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	entries, err := h.service.ListRoster(c.UserContext(), c.Params("orgID"), principal)
	if err != nil {
		return err
	}
	items := make([]dto.RosterEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.RosterEntryResponse{AgentID: entry.AgentID, OrganizationID: entry.OrganizationID})
	}
	return c.JSON(fiber.Map{"data": items})
}

func membershipResponses(memberships []domain.Membership) []dto.MembershipResponse {
	items := make([]dto.MembershipResponse, 0, len(memberships))
	for i := range memberships {
		items = append(items, dto.NewMembershipResponse(&memberships[i]))
	}
	return items
}
