package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-io/support-desk/internal/api/dto"
	"github.com/helpdesk-io/support-desk/internal/auth"
	"github.com/helpdesk-io/support-desk/internal/authz"
	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/service"
	apperrors "github.com/helpdesk-io/support-desk/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	if req.OrganizationID == "" {
		return apperrors.NewValidationError("organization_id", "required")
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), principal, service.TicketCreateInput{
		OrganizationID: req.OrganizationID,
		Subject:        req.Subject,
		Category:       req.Category,
		Priority:       req.Priority,
		Tags:           req.Tags,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /organizations/:orgID/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), principal, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	messageType := req.MessageType
	if messageType == "" {
		messageType = domain.MessageTypePublic
	}
	msg, err := h.service.AddMessage(c.UserContext(), principal, c.Params("id"), messageType, req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketMessageResponse(msg)})
}

// ListMessages GET /tickets/:id/messages.
func (h *TicketsHandler) ListMessages(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	msgs, err := h.service.ListMessages(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TicketMessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, dto.NewTicketMessageResponse(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListAuditLog GET /tickets/:id/audit-log.
func (h *TicketsHandler) ListAuditLog(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	entries, err := h.service.ListAuditLog(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AuditLogEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewAuditLogEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Decide GET /authorize?action=&organization_id=&ticket_id=.
func (h *TicketsHandler) Decide(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	action := authz.Action(c.Query("action"))
	if action == "" {
		return apperrors.NewValidationError("action", "required")
	}
	decision, err := h.service.Decide(c.UserContext(), principal, action, c.Query("organization_id"), c.Query("ticket_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DecisionResponse{
		Action:  string(action),
		Allowed: decision.Allowed,
		Reason:  decision.Reason,
	}})
}

func requirePrincipal(c *fiber.Ctx) (domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Principal{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{OrganizationID: c.Params("orgID")}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if assignee := c.Query("assigned_to"); assignee != "" {
		filter.AssignedTo = &assignee
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
