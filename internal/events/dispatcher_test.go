package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryDispatcher_DeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	var got []EventType
	d.Subscribe(EventTicketAssigned, func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketAssigned}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.Equal(t, []EventType{EventTicketAssigned}, got)
}

func TestInMemoryDispatcher_HandlerErrorDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	calls := 0
	d.Subscribe(EventAuditDegraded, func(context.Context, Event) error {
		calls++
		return errors.New("boom")
	})
	d.Subscribe(EventAuditDegraded, func(context.Context, Event) error {
		calls++
		return nil
	})

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventAuditDegraded}))
	assert.Equal(t, 2, calls)
}

func TestRedisForwarder_NilClientIsNoop(t *testing.T) {
	f := NewRedisForwarder(nil, "chan")
	assert.NoError(t, f.Forward(context.Background(), Event{Type: EventTicketCreated}))
}
