package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-io/support-desk/internal/events"
)

// NotificationService relays committed changes to the boundary layer so open
// views can refresh. Delivery is best effort and never affects the change itself.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	forward    events.EventHandler
	timeout    time.Duration
}

const defaultForwardTimeout = 500 * time.Millisecond

// NewNotificationService creates the service. forward may be nil, in which case
// events are only logged. Each forward call is cut off after timeout.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, forward events.EventHandler, timeout time.Duration) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultForwardTimeout
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		forward:    forward,
		timeout:    timeout,
	}
}

// RegisterHandlers subscribes to every event type.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Debug("change event",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.String("organization_id", event.OrganizationID),
		zap.String("ticket_id", event.TicketID))
	if n.forward == nil {
		return nil
	}
	// The request that caused the change may already be gone, and publishing
	// runs inside the mutating call.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	return n.forward(fctx, event)
}
