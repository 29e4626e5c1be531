package socket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sqrrr/gamehub/internal/model"
)

// ErrHubClosed is returned when registering on a hub that has shut down
var ErrHubClosed = errors.New("socket hub closed")

// Hub tracks every live socket connection by id and fans events out to them.
// It knows nothing about lobbies: callers name the connections to reach.
type Hub struct {
	clients map[model.ConnID]*Client
	mu      sync.RWMutex
	closed  bool
	logger  *slog.Logger
}

// NewHub creates an empty Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[model.ConnID]*Client),
		logger:  logger.With(slog.String("component", "socket")),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.clients[client.id] = client
	h.logger.Info("socket client registered",
		slog.String("conn_id", string(client.id)),
		slog.String("username", client.username),
		slog.Int("total_clients", len(h.clients)))
	return nil
}

// Unregister removes a client and closes its send queue. Safe to call twice.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	close(client.send)
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("socket client unregistered",
		slog.String("conn_id", string(client.id)),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", clientCount))
}

// Send encodes the event once and queues it for every named connection.
// A full queue drops the message for that connection instead of blocking.
func (h *Hub) Send(conns []model.ConnID, event model.Event) {
	if len(conns) == 0 {
		return
	}
	msg, err := Encode(event)
	if err != nil {
		h.logger.Error("socket event not encodable",
			slog.String("event", string(event.Type)),
			slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sentCount := 0
	droppedCount := 0
	for _, id := range conns {
		client, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case client.send <- msg:
			sentCount++
		default:
			droppedCount++
			h.logger.Warn("socket message dropped - client buffer full",
				slog.String("conn_id", string(id)),
				slog.String("event", string(event.Type)))
		}
	}
	if droppedCount > 0 {
		h.logger.Warn("socket broadcast partial failure",
			slog.String("event", string(event.Type)),
			slog.Int("sent", sentCount),
			slog.Int("dropped", droppedCount))
	}
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	clientCount := len(h.clients)
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
	h.logger.Info("socket hub stopped", slog.Int("disconnected_clients", clientCount))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
