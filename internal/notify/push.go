package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"internship-placement/internal/placement"
)

// RedisPusher publishes notifications over Redis pub/sub. Connected frontends
// subscribe to their user channel and role channel; nothing is lost when no
// subscriber is listening because the durable row already exists.
type RedisPusher struct {
	client *redis.Client
}

func NewRedisPusher(client *redis.Client) *RedisPusher {
	return &RedisPusher{client: client}
}

func (p *RedisPusher) Push(ctx context.Context, channel string, n *placement.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}
