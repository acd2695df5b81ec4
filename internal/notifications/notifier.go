package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/redis/go-redis/v9"

	"ripple/internal/observability"
)

// Notifier publishes engagement events into Redis channels so every server
// instance can fan them out to its own WebSocket clients.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel derives the Redis channel name for a user's event feed.
func UserChannel(userID string) string {
	return "engagement:user:" + userID
}

// BroadcastChannel is the channel carrying every untargeted event.
const BroadcastChannel = "engagement:events"

// PublishEvent implements Publisher. A targeted event goes only to the
// target user's channel; everything else goes to the broadcast channel.
// Subscribers listen on both, so each client sees an event exactly once.
func (n *Notifier) PublishEvent(ctx context.Context, ev Event) error {
	if n.rdb == nil {
		return nil
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	observability.RecordEngagementEvent(ev.Type)

	if ev.TargetID != "" && ev.TargetID != ev.ActorID {
		return n.rdb.Publish(ctx, UserChannel(ev.TargetID), payload).Err()
	}
	return n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
}

// StartEventSubscriber subscribes to the broadcast and per-user channels and
// calls onMessage for each incoming message until ctx is done.
func (n *Notifier) StartEventSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, BroadcastChannel, "engagement:user:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		observability.LogAsyncOperationStart(ctx, "event subscriber", map[string]interface{}{
			"channels": BroadcastChannel + ", engagement:user:*",
		})
		for {
			select {
			case <-ctx.Done():
				observability.LogAsyncOperationEnd(ctx, "event subscriber", nil)
				return
			case msg, ok := <-ch:
				if !ok {
					observability.LogAsyncOperationEnd(ctx, "event subscriber", nil)
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.LogAsyncOperationError(ctx, "event subscriber",
								fmt.Errorf("panic: %v", r), map[string]interface{}{
									"channel": msg.Channel,
									"stack":   string(debug.Stack()),
								})
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
