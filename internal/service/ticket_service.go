package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/helpdesk-io/support-desk/internal/audit"
	"github.com/helpdesk-io/support-desk/internal/authz"
	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/events"
	"github.com/helpdesk-io/support-desk/internal/observability"
	"github.com/helpdesk-io/support-desk/internal/repository"
	"github.com/helpdesk-io/support-desk/internal/visibility"
	apperrors "github.com/helpdesk-io/support-desk/pkg/util/errorutil"
)

// TicketService applies ticket transitions. Every mutation re-checks authorization
// against freshly loaded membership facts, writes conditionally against the ticket
// the caller last saw, then appends exactly one audit entry.
type TicketService struct {
	snapshots  snapshotLoader
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	orgs       repository.OrganizationRepository
	audit      *audit.Writer
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Engine         authz.Authorizer
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.TicketMessageRepository
	OrgRepo        repository.OrganizationRepository
	MembershipRepo repository.MembershipRepository
	RosterRepo     repository.AgentRosterRepository
	Audit          *audit.Writer
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	OrganizationID string
	Subject        string
	Category       string
	Priority       domain.TicketPriority
	Tags           []string
}

// TicketListFilter narrows an organization's ticket listing.
type TicketListFilter struct {
	OrganizationID string
	AssignedTo     *string
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	SearchTerm     *string
	Limit          int
	Offset         int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := deps.Engine
	if engine == nil {
		engine = authz.NewEngine()
	}
	return &TicketService{
		snapshots: snapshotLoader{
			engine:      engine,
			memberships: deps.MembershipRepo,
			roster:      deps.RosterRepo,
			metrics:     deps.Metrics,
		},
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		orgs:       deps.OrgRepo,
		audit:      deps.Audit,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// CreateTicket opens a ticket in an organization on behalf of principal.
func (s *TicketService) CreateTicket(ctx context.Context, principal domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject", "required")
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("priority", "unknown priority")
	}
	if _, err := s.orgs.GetByID(ctx, input.OrganizationID); err != nil {
		return nil, storeError(err, "organization")
	}
	if _, err := s.snapshots.authorize(ctx, principal, authz.CreateTicket, input.OrganizationID, nil); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		OrganizationID: input.OrganizationID,
		CreatedBy:      principal.UserID,
		Subject:        subject,
		Status:         domain.TicketStatusOpen,
		Priority:       priority,
		Category:       strings.TrimSpace(input.Category),
		Tags:           input.Tags,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, storeError(err, "organization")
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("organization_id", ticket.OrganizationID),
		zap.String("user_id", principal.UserID))
	publish(ctx, s.dispatcher, events.Event{
		Type:           events.EventTicketCreated,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		ActorID:        principal.UserID,
	})
	return ticket, nil
}

// GetTicket returns a ticket the principal may view.
func (s *TicketService) GetTicket(ctx context.Context, principal domain.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	if _, err := s.snapshots.authorize(ctx, principal, authz.ViewTicket, ticket.OrganizationID, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListTickets lists an organization's tickets. Principals that may only view
// their own tickets get the listing narrowed to those instead of a denial.
func (s *TicketService) ListTickets(ctx context.Context, principal domain.Principal, filter TicketListFilter) ([]domain.Ticket, error) {
	rc, err := s.snapshots.load(ctx, principal, filter.OrganizationID, nil)
	if err != nil {
		return nil, err
	}

	repoFilter := repository.TicketFilter{
		OrganizationID: filter.OrganizationID,
		AssignedTo:     filter.AssignedTo,
		Statuses:       filter.Statuses,
		Priorities:     filter.Priorities,
		SearchTerm:     filter.SearchTerm,
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	}

	rc.Ticket = &authz.TicketFacts{OrganizationID: filter.OrganizationID}
	if err := s.snapshots.check(principal, authz.ViewTicket, rc); err != nil {
		rc.Ticket.CreatedBy = principal.UserID
		if ownErr := s.snapshots.check(principal, authz.ViewTicket, rc); ownErr != nil {
			return nil, err
		}
		repoFilter.CreatedBy = &principal.UserID
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	return tickets, nil
}

// TransitionStatus moves ticket to newStatus. ticket is the state the caller
// acted on; if the stored status has moved on since, the call fails with Conflict.
func (s *TicketService) TransitionStatus(ctx context.Context, ticket *domain.Ticket, newStatus domain.TicketStatus, principal domain.Principal) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("status", "unknown status")
	}
	stored, err := s.current(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if _, err := s.snapshots.authorize(ctx, principal, authz.UpdateTicketStatus, stored.OrganizationID, stored); err != nil {
		return nil, err
	}
	if newStatus == ticket.Status {
		return nil, apperrors.NewValidationError("status", "unchanged")
	}

	updated, err := s.tickets.UpdateStatus(ctx, ticket.ID, ticket.Status, newStatus)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	s.committed(ctx, principal, updated, fieldChange{
		kind:  "status",
		audit: domain.AuditStatusChange,
		event: events.EventTicketStatusChanged,
		from:  strPtr(string(ticket.Status)),
		to:    strPtr(string(newStatus)),
	})
	return updated, nil
}

// TransitionPriority sets the ticket's priority. Same contract as TransitionStatus.
func (s *TicketService) TransitionPriority(ctx context.Context, ticket *domain.Ticket, newPriority domain.TicketPriority, principal domain.Principal) (*domain.Ticket, error) {
	if !newPriority.Valid() {
		return nil, apperrors.NewValidationError("priority", "unknown priority")
	}
	stored, err := s.current(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if _, err := s.snapshots.authorize(ctx, principal, authz.UpdateTicketPriority, stored.OrganizationID, stored); err != nil {
		return nil, err
	}
	if newPriority == ticket.Priority {
		return nil, apperrors.NewValidationError("priority", "unchanged")
	}

	updated, err := s.tickets.UpdatePriority(ctx, ticket.ID, ticket.Priority, newPriority)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	s.committed(ctx, principal, updated, fieldChange{
		kind:  "priority",
		audit: domain.AuditPriorityChange,
		event: events.EventTicketPriorityChanged,
		from:  strPtr(string(ticket.Priority)),
		to:    strPtr(string(newPriority)),
	})
	return updated, nil
}

// AddMessage appends a message to a ticket thread. Internal notes need
// CreateInternalMessage; public replies need ViewTicket. System messages are
// written by the service only.
func (s *TicketService) AddMessage(ctx context.Context, principal domain.Principal, ticketID string, messageType domain.TicketMessageType, content string) (*domain.TicketMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content", "required")
	}
	var action authz.Action
	switch messageType {
	case domain.MessageTypePublic:
		action = authz.ViewTicket
	case domain.MessageTypeInternal:
		action = authz.CreateInternalMessage
	case domain.MessageTypeSystem:
		return nil, apperrors.NewValidationError("message_type", "reserved")
	default:
		return nil, apperrors.NewValidationError("message_type", "unknown message type")
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	if _, err := s.snapshots.authorize(ctx, principal, action, ticket.OrganizationID, ticket); err != nil {
		return nil, err
	}

	msg := &domain.TicketMessage{
		TicketID:    ticket.ID,
		CreatedBy:   principal.UserID,
		Content:     content,
		MessageType: messageType,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, storeError(err, "ticket")
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:           events.EventTicketMessageAdded,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		ActorID:        principal.UserID,
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			MessageType: msg.MessageType,
		},
	})
	return msg, nil
}

// ListMessages returns the thread as the principal may see it, oldest first.
func (s *TicketService) ListMessages(ctx context.Context, principal domain.Principal, ticketID string) ([]domain.TicketMessage, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	rc, err := s.snapshots.authorize(ctx, principal, authz.ViewTicket, ticket.OrganizationID, ticket)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	return visibility.Filter(s.snapshots.engine, principal, rc, msgs), nil
}

// ListAuditLog returns the ticket's audit trail, oldest first.
func (s *TicketService) ListAuditLog(ctx context.Context, principal domain.Principal, ticketID string) ([]domain.AuditLogEntry, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	if _, err := s.snapshots.authorize(ctx, principal, authz.ViewTicket, ticket.OrganizationID, ticket); err != nil {
		return nil, err
	}
	entries, err := s.audit.List(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	return entries, nil
}

// current loads the stored ticket so authorization sees its real organization
// and creator. The caller's copy still supplies the expected field values.
func (s *TicketService) current(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	if ticket == nil {
		return nil, apperrors.NewValidationError("ticket", "required")
	}
	stored, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	return stored, nil
}

type fieldChange struct {
	kind  string
	audit domain.AuditEventType
	event events.EventType
	from  *string
	to    *string
}

// committed runs the post-commit sequence shared by every field transition:
// audit append, metrics, log and change event. The mutation already stands,
// so nothing here can fail the call.
func (s *TicketService) committed(ctx context.Context, principal domain.Principal, ticket *domain.Ticket, change fieldChange) {
	entry := &domain.AuditLogEntry{
		TicketID:  ticket.ID,
		EventType: change.audit,
		FromValue: change.from,
		ToValue:   change.to,
		UserID:    principal.UserID,
	}
	// A failed append has already been raised as audit degraded by the writer.
	_ = s.audit.Append(ctx, ticket.OrganizationID, entry)

	s.metrics.RecordTransition(change.kind)
	s.logger.Info("ticket "+change.kind+" changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("organization_id", ticket.OrganizationID),
		zap.String("user_id", principal.UserID),
		zap.Stringp("from", change.from),
		zap.Stringp("to", change.to))
	publish(ctx, s.dispatcher, events.Event{
		Type:           change.event,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		ActorID:        principal.UserID,
		Payload: events.FieldChangedPayload{
			Field: change.kind,
			From:  change.from,
			To:    change.to,
		},
	})
}
