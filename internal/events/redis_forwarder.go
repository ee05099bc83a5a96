package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisForwarder publishes events on a Redis pub/sub channel so UI processes can refresh views.
type RedisForwarder struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisForwarder builds a forwarder. A nil client yields a no-op forwarder.
func NewRedisForwarder(client redis.UniversalClient, channel string) *RedisForwarder {
	return &RedisForwarder{client: client, channel: channel}
}

// Forward is an EventHandler.
func (f *RedisForwarder) Forward(ctx context.Context, event Event) error {
	if f == nil || f.client == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return f.client.Publish(ctx, f.channel, body).Err()
}
