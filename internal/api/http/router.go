package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helpdesk-io/support-desk/internal/api/http/handlers"
	"github.com/helpdesk-io/support-desk/internal/auth"
	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Organizations  *handlers.OrganizationsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)
	api.Get("/authorize", cfg.Tickets.Decide)

	api.Post("/organizations", cfg.Organizations.CreateOrganization)
	api.Get("/organizations/:orgID/members", cfg.Organizations.ListMembers)
	api.Delete("/organizations/:orgID/members/:userID", cfg.Organizations.RemoveMember)
	api.Post("/organizations/:orgID/invitations", cfg.Organizations.Invite)
	api.Get("/organizations/:orgID/tickets", cfg.Tickets.ListTickets)
	api.Get("/me/invitations", cfg.Organizations.ListInvitations)
	api.Post("/invitations/:id/respond", cfg.Organizations.RespondToInvitation)

	roster := api.Group("/organizations/:orgID/agents", auth.RequireSystemRole(domain.SystemRoleAdmin))
	roster.Get("", cfg.Organizations.ListAgents)
	roster.Post("", cfg.Organizations.AddAgent)
	roster.Delete("/:agentID", cfg.Organizations.RemoveAgent)

	api.Post("/tickets", cfg.Tickets.CreateTicket)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)
	api.Patch("/tickets/:id/priority", cfg.Tickets.UpdatePriority)
	api.Put("/tickets/:id/assignee", cfg.Tickets.Assign)
	api.Get("/tickets/:id/messages", cfg.Tickets.ListMessages)
	api.Post("/tickets/:id/messages", cfg.Tickets.AddMessage)
	api.Get("/tickets/:id/audit-log", cfg.Tickets.ListAuditLog)
}
