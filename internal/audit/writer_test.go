package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/events"
	"github.com/helpdesk-io/support-desk/internal/repository/memory"
	apperrors "github.com/helpdesk-io/support-desk/pkg/util/errorutil"
)

func strPtr(s string) *string { return &s }

func newEntry() *domain.AuditLogEntry {
	return &domain.AuditLogEntry{
		TicketID:  "t-1",
		EventType: domain.AuditStatusChange,
		FromValue: strPtr("open"),
		ToValue:   strPtr("closed"),
		UserID:    "u-1",
	}
}

func TestWriter_AppendsOnce(t *testing.T) {
	store := memory.New()
	w := NewWriter(store.AuditLog(), zap.NewNop(), nil, nil, Options{MaxAttempts: 3})

	require.NoError(t, w.Append(context.Background(), "org", newEntry()))
	entries, err := w.List(context.Background(), "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
}

func TestWriter_RetriesTransientFailures(t *testing.T) {
	store := memory.New()
	store.FailAuditAppends(2, apperrors.NewTransientStoreError(errors.New("connection reset")))
	w := NewWriter(store.AuditLog(), zap.NewNop(), nil, nil, Options{MaxAttempts: 3})

	require.NoError(t, w.Append(context.Background(), "org", newEntry()))
	entries, _ := w.List(context.Background(), "t-1")
	assert.Len(t, entries, 1)
}

func TestWriter_ReportsDegradedAfterExhaustion(t *testing.T) {
	store := memory.New()
	store.FailAuditAppends(5, apperrors.NewTransientStoreError(errors.New("connection reset")))
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	var incidents []events.Event
	dispatcher.Subscribe(events.EventAuditDegraded, func(_ context.Context, e events.Event) error {
		incidents = append(incidents, e)
		return nil
	})
	w := NewWriter(store.AuditLog(), zap.NewNop(), nil, dispatcher, Options{MaxAttempts: 3})

	err := w.Append(context.Background(), "org", newEntry())
	require.ErrorIs(t, err, ErrDegraded)
	require.Len(t, incidents, 1)
	payload, ok := incidents[0].Payload.(events.AuditDegradedPayload)
	require.True(t, ok)
	assert.Equal(t, 3, payload.Attempts)
	assert.Equal(t, "t-1", incidents[0].TicketID)
}

func TestWriter_DoesNotRetryPermanentFailures(t *testing.T) {
	store := memory.New()
	store.FailAuditAppends(1, errors.New("check constraint violated"))
	w := NewWriter(store.AuditLog(), zap.NewNop(), nil, nil, Options{MaxAttempts: 3})

	err := w.Append(context.Background(), "org", newEntry())
	require.ErrorIs(t, err, ErrDegraded)

	// the single injected failure was consumed; nothing was retried behind our back
	entries, _ := w.List(context.Background(), "t-1")
	assert.Empty(t, entries)
}

func TestWriter_SurvivesCanceledContext(t *testing.T) {
	store := memory.New()
	w := NewWriter(store.AuditLog(), zap.NewNop(), nil, nil, Options{MaxAttempts: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, w.Append(ctx, "org", newEntry()))
}
