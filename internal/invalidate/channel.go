package invalidate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// PubSubChannelName is the Redis channel invalidation messages travel on.
const PubSubChannelName = "catalog.invalidate"

// RedisChannel carries invalidation messages over Redis pub/sub.
type RedisChannel struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisChannel creates a Redis-backed invalidation channel.
func NewRedisChannel(client *redis.Client, logger *slog.Logger) *RedisChannel {
	return &RedisChannel{client: client, logger: logger}
}

// Publish implements Channel.
func (c *RedisChannel) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal invalidation message: %w", err)
	}
	if err := c.client.Publish(ctx, PubSubChannelName, payload).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Subscribe implements Channel. Malformed payloads are logged and
// dropped; they never stop the subscription.
func (c *RedisChannel) Subscribe(ctx context.Context, handler func(Message)) error {
	sub := c.client.Subscribe(ctx, PubSubChannelName)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				c.logger.Warn("malformed invalidation message",
					slog.String("payload", raw.Payload),
					slog.String("error", err.Error()),
				)
				continue
			}
			handler(msg)
		}
	}
}

// NoopChannel is the single-replica fallback: publishes go nowhere and
// subscriptions idle until shutdown. Used when Redis is not configured.
type NoopChannel struct{}

// Publish implements Channel.
func (NoopChannel) Publish(ctx context.Context, msg Message) error { return nil }

// Subscribe implements Channel.
func (NoopChannel) Subscribe(ctx context.Context, handler func(Message)) error {
	<-ctx.Done()
	return ctx.Err()
}
