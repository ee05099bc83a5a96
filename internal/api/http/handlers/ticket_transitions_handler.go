package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-io/support-desk/internal/api/dto"
	apperrors "github.com/helpdesk-io/support-desk/pkg/util/errorutil"
)

// The transition endpoints load the current ticket and, when the client says
// which value it last saw, substitute it so the conditional write compares
// against the client's view instead of ours.

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return apperrors.NewValidationError("status", "required")
	}
	ticket, err := h.service.GetTicket(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	if req.ExpectedStatus != nil {
		ticket.Status = *req.ExpectedStatus
	}
	updated, err := h.service.TransitionStatus(c.UserContext(), ticket, req.Status, principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(updated)})
}

// UpdatePriority PATCH /tickets/:id/priority.
func (h *TicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil || req.Priority == "" {
		return apperrors.NewValidationError("priority", "required")
	}
	ticket, err := h.service.GetTicket(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	if req.ExpectedPriority != nil {
		ticket.Priority = *req.ExpectedPriority
	}
	updated, err := h.service.TransitionPriority(c.UserContext(), ticket, req.Priority, principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(updated)})
}

// Assign PUT /tickets/:id/assignee.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	ticket, err := h.service.GetTicket(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	if req.ExpectedAssignedTo != nil {
		ticket.AssignedTo = nil
		if expected := *req.ExpectedAssignedTo; expected != "" {
			ticket.AssignedTo = &expected
		}
	}
	updated, err := h.service.Assign(c.UserContext(), ticket, req.AgentID, principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(updated)})
}
