package http

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-io/support-desk/internal/api/http/handlers"
	"github.com/helpdesk-io/support-desk/internal/audit"
	"github.com/helpdesk-io/support-desk/internal/auth"
	"github.com/helpdesk-io/support-desk/internal/authz"
	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/events"
	"github.com/helpdesk-io/support-desk/internal/observability"
	"github.com/helpdesk-io/support-desk/internal/repository/memory"
	"github.com/helpdesk-io/support-desk/internal/service"
)

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	store.PutProfile("owner", domain.SystemRoleUser)
	store.PutProfile("member", domain.SystemRoleUser)
	store.PutProfile("root", domain.SystemRoleAdmin)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	engine := authz.NewEngine()

	tickets := service.NewTicketService(service.TicketDependencies{
		Engine:         engine,
		TicketRepo:     store.Tickets(),
		MessageRepo:    store.TicketMessages(),
		OrgRepo:        store.Organizations(),
		MembershipRepo: store.Memberships(),
		RosterRepo:     store.AgentRoster(),
		Audit:          audit.NewWriter(store.AuditLog(), logger, metrics, dispatcher, audit.Options{MaxAttempts: 1}),
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	memberships := service.NewMembershipService(service.MembershipDependencies{
		Engine:         engine,
		OrgRepo:        store.Organizations(),
		MembershipRepo: store.Memberships(),
		RosterRepo:     store.AgentRoster(),
		UserRepo:       store.Users(),
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})

	tokens := auth.NewTokenManager("test-secret", 5)
	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("support-desk", "test", nil),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Organizations:  handlers.NewOrganizationsHandler(memberships),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Users()),
		Metrics:        metrics,
	})
	return &testServer{app: app, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, userID string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if userID != "" {
		token, _, err := s.tokens.GenerateToken(userID)
		require.NoError(t, err)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func dataField(t *testing.T, body map[string]any, path ...string) string {
	t.Helper()
	var cur any = body["data"]
	for _, key := range path {
		m, ok := cur.(map[string]any)
		require.True(t, ok, "missing %s", key)
		cur = m[key]
	}
	s, _ := cur.(string)
	return s
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodPost, "/api/v1/organizations", "owner", map[string]any{"name": "Acme"})
	require.Equal(t, nethttp.StatusCreated, status)
	orgID := dataField(t, body, "organization", "id")
	require.NotEmpty(t, orgID)

	status, body = s.do(t, nethttp.MethodPost, "/api/v1/organizations/"+orgID+"/invitations", "owner", map[string]any{"user_id": "member"})
	require.Equal(t, nethttp.StatusCreated, status)
	inviteID := dataField(t, body, "id")

	status, body = s.do(t, nethttp.MethodPost, "/api/v1/invitations/"+inviteID+"/respond", "owner", map[string]any{"decision": "accept"})
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, "PERMISSION_DENIED", errorCode(body))

	status, _ = s.do(t, nethttp.MethodPost, "/api/v1/invitations/"+inviteID+"/respond", "member", map[string]any{"decision": "accept"})
	require.Equal(t, nethttp.StatusOK, status)
	status, body = s.do(t, nethttp.MethodPost, "/api/v1/invitations/"+inviteID+"/respond", "member", map[string]any{"decision": "accept"})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	status, body = s.do(t, nethttp.MethodPost, "/api/v1/tickets", "member", map[string]any{"organization_id": orgID, "subject": "VPN down"})
	require.Equal(t, nethttp.StatusCreated, status)
	ticketID := dataField(t, body, "id")

	status, body = s.do(t, nethttp.MethodPatch, "/api/v1/tickets/"+ticketID+"/status", "member", map[string]any{"status": "closed"})
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, "PERMISSION_DENIED", errorCode(body))

	status, body = s.do(t, nethttp.MethodPatch, "/api/v1/tickets/"+ticketID+"/status", "owner", map[string]any{"status": "in_progress", "expected_status": "open"})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "in_progress", dataField(t, body, "status"))

	status, body = s.do(t, nethttp.MethodPatch, "/api/v1/tickets/"+ticketID+"/status", "owner", map[string]any{"status": "closed", "expected_status": "open"})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	status, body = s.do(t, nethttp.MethodPatch, "/api/v1/tickets/"+ticketID+"/status", "owner", map[string]any{"status": "resolved"})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, nethttp.MethodGet, "/api/v1/tickets/"+ticketID+"/audit-log", "member", nil)
	require.Equal(t, nethttp.StatusOK, status)
	entries, _ := body["data"].([]any)
	assert.Len(t, entries, 1)

	status, body = s.do(t, nethttp.MethodGet, "/api/v1/authorize?action=update_ticket_status&ticket_id="+ticketID, "member", nil)
	require.Equal(t, nethttp.StatusOK, status)
	decision, _ := body["data"].(map[string]any)
	assert.Equal(t, false, decision["allowed"])
}

func TestInternalMessagesOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, body := s.do(t, nethttp.MethodPost, "/api/v1/organizations", "owner", map[string]any{"name": "Acme"})
	orgID := dataField(t, body, "organization", "id")
	_, body = s.do(t, nethttp.MethodPost, "/api/v1/organizations/"+orgID+"/invitations", "owner", map[string]any{"user_id": "member"})
	s.do(t, nethttp.MethodPost, "/api/v1/invitations/"+dataField(t, body, "id")+"/respond", "member", map[string]any{"decision": "accept"})
	_, body = s.do(t, nethttp.MethodPost, "/api/v1/tickets", "member", map[string]any{"organization_id": orgID, "subject": "VPN down"})
	ticketID := dataField(t, body, "id")

	status, _ := s.do(t, nethttp.MethodPost, "/api/v1/tickets/"+ticketID+"/messages", "owner", map[string]any{"content": "check the logs", "message_type": "internal"})
	require.Equal(t, nethttp.StatusCreated, status)
	status, _ = s.do(t, nethttp.MethodPost, "/api/v1/tickets/"+ticketID+"/messages", "member", map[string]any{"content": "any news?"})
	require.Equal(t, nethttp.StatusCreated, status)

	_, body = s.do(t, nethttp.MethodGet, "/api/v1/tickets/"+ticketID+"/messages", "member", nil)
	msgs, _ := body["data"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "public", msgs[0].(map[string]any)["message_type"])

	_, body = s.do(t, nethttp.MethodGet, "/api/v1/tickets/"+ticketID+"/messages", "owner", nil)
	msgs, _ = body["data"].([]any)
	assert.Len(t, msgs, 2)
}

func TestRosterRequiresSystemAdmin(t *testing.T) {
	s := newTestServer(t)
	_, body := s.do(t, nethttp.MethodPost, "/api/v1/organizations", "owner", map[string]any{"name": "Acme"})
	orgID := dataField(t, body, "organization", "id")

	status, body := s.do(t, nethttp.MethodGet, "/api/v1/organizations/"+orgID+"/agents", "owner", nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, "PERMISSION_DENIED", errorCode(body))

	status, _ = s.do(t, nethttp.MethodGet, "/api/v1/organizations/"+orgID+"/agents", "root", nil)
	assert.Equal(t, nethttp.StatusOK, status)
}

func TestAuthenticationAndInfrastructureRoutes(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodGet, "/api/v1/me/invitations", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = s.do(t, nethttp.MethodGet, "/api/v1/me/invitations", "ghost", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)

	status, _ = s.do(t, nethttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	status, _ = s.do(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	status, _ = s.do(t, nethttp.MethodGet, "/metrics", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)

	status, body = s.do(t, nethttp.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}
