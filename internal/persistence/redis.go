package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpdesk-io/support-desk/internal/config"
)

// Redis carries change broadcasts. An unreachable server degrades the
// broadcast only; the service keeps running.
type Redis struct {
	Client         *redis.Client
	ChangesChannel string
}

// NewRedis builds a client whose dials and commands are bounded by cfg.Timeout,
// then reports how many listeners the changes channel has.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout(),
		ReadTimeout:  cfg.Timeout(),
		WriteTimeout: cfg.Timeout(),
		MaxRetries:   1,
	})
	r := &Redis{Client: client, ChangesChannel: cfg.ChangesChannel}

	listeners, err := r.ChangesListeners(ctx)
	if err != nil {
		logger.Warn("unable to reach redis; change broadcasts will be dropped",
			zap.String("addr", cfg.Addr), zap.Error(err))
		return r
	}
	logger.Info("connected to redis",
		zap.String("channel", cfg.ChangesChannel),
		zap.Int64("listeners", listeners))
	return r
}

// ChangesListeners returns the number of subscribers on the changes channel.
func (r *Redis) ChangesListeners(ctx context.Context) (int64, error) {
	if r == nil || r.Client == nil {
		return 0, errors.New("redis client not configured")
	}
	if r.ChangesChannel == "" {
		return 0, errors.New("redis changes channel not configured")
	}
	counts, err := r.Client.PubSubNumSub(ctx, r.ChangesChannel).Result()
	if err != nil {
		return 0, err
	}
	return counts[r.ChangesChannel], nil
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
