package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-planner/internal/studyplan"
)

// DefaultChannel is the Redis channel progress events are published on.
const DefaultChannel = "planner:progress"

// RedisBroker publishes progress to a Redis channel. Run relays that channel
// into the local hub, so every instance sees every completion.
type RedisBroker struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

// NewRedisBroker creates a broker on channel, or DefaultChannel when empty.
func NewRedisBroker(client *redis.Client, channel string, hub *Hub) (*RedisBroker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if hub == nil {
		return nil, fmt.Errorf("hub is nil")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{client: client, channel: channel, hub: hub}, nil
}

// NotifyProgress publishes event for all instances, this one included.
func (b *RedisBroker) NotifyProgress(ctx context.Context, event studyplan.ProgressEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish progress event: %w", err)
	}
	return nil
}

// Run subscribes to the channel and broadcasts every message to the hub
// until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return fmt.Errorf("redis subscribe: %w", err)
	}
	slog.Info("progress relay started", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			var event studyplan.ProgressEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("bad progress payload", "channel", msg.Channel, "error", err)
				continue
			}
			b.hub.Broadcast(event)
		}
	}
}
