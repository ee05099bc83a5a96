package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/helpdesk-io/support-desk/internal/events"
)

func TestNotificationService_ForwardsEveryType(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	var forwarded []events.EventType
	svc := NewNotificationService(dispatcher, nil, func(ctx context.Context, e events.Event) error {
		assert.NoError(t, ctx.Err())
		forwarded = append(forwarded, e.Type)
		return nil
	}, 0)
	svc.RegisterHandlers()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, eventType := range events.AllEventTypes {
		_ = dispatcher.Publish(ctx, events.Event{Type: eventType})
	}
	assert.Equal(t, events.AllEventTypes, forwarded)
}

func TestNotificationService_NilDispatcher(t *testing.T) {
	svc := NewNotificationService(nil, nil, nil, 0)
	assert.NotPanics(t, svc.RegisterHandlers)
}

func TestNotificationService_ForwardIsBounded(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	svc := NewNotificationService(dispatcher, nil, func(ctx context.Context, _ events.Event) error {
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(20*time.Millisecond), deadline, 20*time.Millisecond)
		<-ctx.Done()
		return ctx.Err()
	}, 20*time.Millisecond)
	svc.RegisterHandlers()

	start := time.Now()
	_ = dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketStatusChanged})
	assert.Less(t, time.Since(start), time.Second)
}
