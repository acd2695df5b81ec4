package notifications

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gofiber/websocket/v2"

	"ripple/internal/observability"
)

// maxConnsPerUser bounds simultaneous sockets per user (multi-device).
const maxConnsPerUser = 8

// EventHub fans committed engagement events out to connected WebSocket
// clients. It is user-centric: broadcast events reach everyone, per-user
// events reach only that user's connections.
type EventHub struct {
	mu        sync.RWMutex
	userConns map[string]map[*Client]bool
	wsLogger  *observability.WSLogger
}

// NewEventHub creates a new EventHub instance.
func NewEventHub() *EventHub {
	return &EventHub{
		userConns: make(map[string]map[*Client]bool),
		wsLogger:  observability.NewWSLogger("event hub"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *EventHub) Name() string { return "event hub" }

// Register registers a user's websocket connection. Returns the Client or
// an error if the per-user limit is exceeded.
func (h *EventHub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[*Client]bool)
	}
	if len(h.userConns[userID]) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, fmt.Errorf("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	h.userConns[userID][client] = true
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	h.wsLogger.LogConnect(context.Background(), userID)
	return client, nil
}

// UnregisterClient removes a client and closes its send channel.
func (h *EventHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.userConns[client.UserID]
	if !ok || !clients[client] {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.userConns, client.UserID)
	}
	h.mu.Unlock()

	close(client.Send)
	observability.WebSocketConnectionsTotal.Dec()
	h.wsLogger.LogDisconnect(context.Background(), client.UserID, "connection closed")
}

// Broadcast delivers a payload to every connected client.
func (h *EventHub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.userConns {
		for client := range clients {
			client.TrySend(payload)
		}
	}
}

// SendToUser delivers a payload to all of one user's connections.
func (h *EventHub) SendToUser(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.userConns[userID] {
		client.TrySend(payload)
	}
}

// ConnectionCount returns the number of open connections for a user.
func (h *EventHub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID])
}

// Dispatch routes a Redis pub/sub message onto the right set of clients
// based on the channel it arrived on.
func (h *EventHub) Dispatch(channel, payload string) {
	if userID, ok := strings.CutPrefix(channel, "engagement:user:"); ok {
		h.SendToUser(userID, []byte(payload))
		return
	}
	h.Broadcast([]byte(payload))
}
