package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/redis/go-redis/v9"

	"github.com/example/skillswap/internal/application"
)

// DefaultPrefix namespaces the Redis channels events are published on.
const DefaultPrefix = "skillswap"

// RedisPublisher publishes every event to <prefix>:events and to
// <prefix>:user:<id> for each recipient.
type RedisPublisher struct {
	rdb    *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisPublisher wraps a connected client. An empty prefix selects DefaultPrefix.
func NewRedisPublisher(rdb *redis.Client, prefix string, logger *slog.Logger) *RedisPublisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{rdb: rdb, prefix: prefix, logger: logger}
}

// EventsChannel is the channel carrying every event.
func (p *RedisPublisher) EventsChannel() string {
	return p.prefix + ":events"
}

// UserChannel is the channel carrying the events addressed to userID.
func (p *RedisPublisher) UserChannel(userID string) string {
	return fmt.Sprintf("%s:user:%s", p.prefix, userID)
}

// Publish implements application.EventPublisher. All channels are written in
// one pipeline round trip.
func (p *RedisPublisher) Publish(ctx context.Context, event application.Event) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	payload, err := Encode(event)
	if err != nil {
		return err
	}

	pipe := p.rdb.Pipeline()
	pipe.Publish(ctx, p.EventsChannel(), payload)
	seen := make(map[string]struct{}, len(event.Recipients))
	for _, userID := range event.Recipients {
		if _, ok := seen[userID]; ok || userID == "" {
			continue
		}
		seen[userID] = struct{}{}
		pipe.Publish(ctx, p.UserChannel(userID), payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("notify: publish %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe implements Subscriber over the user's channel. The subscription
// is confirmed before Subscribe returns, so no later publish is missed.
func (p *RedisPublisher) Subscribe(ctx context.Context, userID string) (<-chan []byte, func(), error) {
	if p == nil || p.rdb == nil {
		return nil, nil, fmt.Errorf("notify: redis publisher not configured")
	}

	sub := p.rdb.Subscribe(ctx, p.UserChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("notify: subscribe %s: %w", userID, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan []byte, defaultBuffer)
	messages := sub.Channel()

	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("panic in redis subscriber", "user_id", userID, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

// Ping checks connectivity to the Redis server.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("notify: redis publisher not configured")
	}
	return p.rdb.Ping(ctx).Err()
}
