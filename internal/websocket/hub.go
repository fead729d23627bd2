// Package websocket pushes ledger change notifications to connected browsers.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"tiffin/internal/core"
)

// Message is the frame sent to clients after a committed change. Clients
// refetch what they display; the frame carries identifiers only.
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Date   string `json:"date,omitempty"`
}

// NewMessage derives Type as "<entity>_<action>".
func NewMessage(event core.LedgerEvent) Message {
	return Message{
		Type:   event.Entity + "_" + event.Action,
		Entity: event.Entity,
		Action: event.Action,
		ID:     event.ID,
		Date:   event.Date,
	}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", h.ClientCount())
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast queues msg on every client. Clients with a full buffer miss it.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket client buffer full, dropping message", "type", msg.Type)
		}
	}
}

// Notify broadcasts event. It never fails.
func (h *Hub) Notify(_ context.Context, event core.LedgerEvent) error {
	h.Broadcast(NewMessage(event))
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client, used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
