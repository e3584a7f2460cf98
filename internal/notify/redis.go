// ABOUTME: Redis-backed alert publisher for out-of-process consumers.
// ABOUTME: Publishes to a fleet channel and a per-driver channel and keeps a capped recent list.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harperreed/drivewatch/internal/models"
	"github.com/redis/go-redis/v9"
)

// RecentLimit caps the recent-alerts list.
const RecentLimit = 100

// RedisPublisher publishes alert events over Redis pub/sub.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to addr and verifies the connection.
func NewRedisPublisher(ctx context.Context, addr, channel string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisPublisherWithClient(client, channel), nil
}

// NewRedisPublisherWithClient wraps an existing client.
func NewRedisPublisherWithClient(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Channel returns the fleet-wide channel name.
func (r *RedisPublisher) Channel() string { return r.channel }

// DriverChannel returns the channel carrying one driver's alerts.
func (r *RedisPublisher) DriverChannel(ev models.AlertEvent) string {
	return fmt.Sprintf("%s:%s", r.channel, ev.DriverID)
}

// RecentKey returns the list key holding the latest alerts, newest first.
func (r *RedisPublisher) RecentKey() string {
	return r.channel + ":recent"
}

// Publish implements Publisher.
func (r *RedisPublisher) Publish(ctx context.Context, ev models.AlertEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Publish(ctx, r.channel, payload)
	pipe.Publish(ctx, r.DriverChannel(ev), payload)
	pipe.LPush(ctx, r.RecentKey(), payload)
	pipe.LTrim(ctx, r.RecentKey(), 0, RecentLimit-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
