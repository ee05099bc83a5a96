// Package audit appends immutable audit entries for committed ticket mutations.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/events"
	"github.com/helpdesk-io/support-desk/internal/observability"
	"github.com/helpdesk-io/support-desk/internal/repository"
	apperrors "github.com/helpdesk-io/support-desk/pkg/util/errorutil"
)

// ErrDegraded is returned when an entry could not be written after all attempts.
// The triggering mutation stays committed; the gap has been logged, counted and published.
var ErrDegraded = errors.New("audit degraded")

// Options bounds the retry loop.
type Options struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Writer is the single path through which audit entries are written.
type Writer struct {
	repo       repository.AuditLogRepository
	logger     *zap.Logger
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
	opts       Options
}

// NewWriter builds a writer. Logger, metrics and dispatcher may be nil.
func NewWriter(repo repository.AuditLogRepository, logger *zap.Logger, metrics *observability.Metrics, dispatcher events.Dispatcher, opts Options) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Writer{repo: repo, logger: logger, metrics: metrics, dispatcher: dispatcher, opts: opts}
}

// Append writes one entry. Transient store errors are retried up to MaxAttempts in total;
// any other failure, or exhaustion, raises an audit-degraded incident and returns ErrDegraded.
func (w *Writer) Append(ctx context.Context, organizationID string, entry *domain.AuditLogEntry) error {
	// The mutation is already committed; a caller hanging up must not cost us the entry.
	ctx = context.WithoutCancel(ctx)

	var lastErr error
	attempts := 0
	for attempts < w.opts.MaxAttempts {
		attempts++
		lastErr = w.repo.Append(ctx, entry)
		if lastErr == nil {
			return nil
		}
		if !apperrors.IsTransient(lastErr) || attempts == w.opts.MaxAttempts {
			break
		}
		w.metrics.RecordAuditRetry()
		w.logger.Warn("audit append failed, retrying",
			zap.String("ticket_id", entry.TicketID),
			zap.String("event_type", string(entry.EventType)),
			zap.Int("attempt", attempts),
			zap.Error(lastErr))
		time.Sleep(w.opts.Backoff * time.Duration(attempts))
	}

	w.degraded(ctx, organizationID, entry, attempts, lastErr)
	return fmt.Errorf("%w: %v", ErrDegraded, lastErr)
}

func (w *Writer) degraded(ctx context.Context, organizationID string, entry *domain.AuditLogEntry, attempts int, cause error) {
	w.metrics.RecordAuditDegraded()
	w.logger.Error("audit degraded: mutation committed without audit entry",
		zap.String("organization_id", organizationID),
		zap.String("ticket_id", entry.TicketID),
		zap.String("event_type", string(entry.EventType)),
		zap.String("user_id", entry.UserID),
		zap.Stringp("from", entry.FromValue),
		zap.Stringp("to", entry.ToValue),
		zap.Int("attempts", attempts),
		zap.Error(cause))

	if w.dispatcher == nil {
		return
	}
	_ = w.dispatcher.Publish(ctx, events.Event{
		ID:             uuid.NewString(),
		Type:           events.EventAuditDegraded,
		OrganizationID: organizationID,
		TicketID:       entry.TicketID,
		ActorID:        entry.UserID,
		Timestamp:      time.Now().UTC(),
		Payload: events.AuditDegradedPayload{
			EventType: entry.EventType,
			From:      entry.FromValue,
			To:        entry.ToValue,
			Attempts:  attempts,
			Error:     cause.Error(),
		},
	})
}

// List returns a ticket's entries oldest first. The log has no update or delete surface.
func (w *Writer) List(ctx context.Context, ticketID string) ([]domain.AuditLogEntry, error) {
	return w.repo.ListByTicket(ctx, ticketID)
}
