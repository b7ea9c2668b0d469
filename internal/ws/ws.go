// Package ws pushes catalog change notifications to WebSocket clients.
//
// The hub implements catalog.Notifier: every committed mutation arrives as
// an Event, gets wrapped in a catalog_change message and fanned out to all
// connected clients. Clients that cannot keep up are dropped.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"nhooyr.io/websocket"

	"github.com/schemakeep/schemakeep/internal/catalog"
)

// SnapshotProviderFunc returns the full catalog contents as JSON bytes.
type SnapshotProviderFunc func() ([]byte, error)

// Hub manages WebSocket connections and broadcasts messages to all clients.
type Hub struct {
	clients          map[*Client]bool
	broadcast        chan []byte
	register         chan *Client
	unregister       chan *Client
	logger           *slog.Logger
	mu               sync.RWMutex
	snapshotProvider SnapshotProviderFunc
}

var _ catalog.Notifier = (*Hub)(nil)

// Client represents a single WebSocket connection.
type Client struct {
	id   string
	hub  *Hub
	send chan []byte
	conn *websocket.Conn
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// SetSnapshotProvider sets the function called to build the snapshot sent to
// new and re-syncing clients.
func (h *Hub) SetSnapshotProvider(fn SnapshotProviderFunc) {
	h.mu.Lock()
	h.snapshotProvider = fn
	h.mu.Unlock()
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", "client", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", "client", client.id)

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// Notify implements catalog.Notifier. It runs while the catalog holds its
// operation lock, so the event is handed to the broadcast queue and the call
// returns immediately. If the queue is full the event is dropped; clients
// recover by requesting a sync.
func (h *Hub) Notify(event catalog.Event) {
	msg, err := NewMessage(MsgCatalogChange, event)
	if err != nil {
		h.logger.Error("building catalog_change message", "error", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, catalog change dropped",
			"family", event.Family, "id", event.ID)
	}
}

// BroadcastError broadcasts an error to all clients.
func (h *Hub) BroadcastError(errMsg string) {
	msg, err := NewMessage(MsgError, map[string]string{"message": errMsg})
	if err != nil {
		return
	}
	h.Broadcast(msg)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshotMessage() ([]byte, bool) {
	h.mu.RLock()
	provider := h.snapshotProvider
	h.mu.RUnlock()
	if provider == nil {
		return nil, false
	}
	data, err := provider()
	if err != nil {
		h.logger.Error("building catalog snapshot", "error", err)
		return nil, false
	}
	msg, err := NewMessage(MsgSnapshot, json.RawMessage(data))
	if err != nil {
		return nil, false
	}
	return msg, true
}
