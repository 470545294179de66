// Package websocket pushes change events to planning boards and shop floor
// screens.
package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/xelth-com/eckmrpgo/internal/events"
)

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	identify   chan identifyRequest
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		register:   make(chan *Client),
		identify:   make(chan identifyRequest),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     logger.Named("websocket"),
	}
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("Client connected", zap.String("client", client.id))

		case req := <-h.identify:
			h.mu.Lock()
			if h.clients[req.client] {
				// Same client id reconnecting replaces the old connection.
				for other := range h.clients {
					if other != req.client && other.id == req.id {
						delete(h.clients, other)
						close(other.send)
					}
				}
				req.client.id = req.id
			}
			h.mu.Unlock()
			h.logger.Debug("Client identified", zap.String("client", req.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("Client disconnected", zap.String("client", client.id))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Broadcast queues an event for every connected client. Events are dropped
// when the queue is full.
func (h *Hub) Broadcast(event events.Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Error marshaling event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast queue full, event dropped", zap.String("type", event.Type))
	}
}

// SendToClient sends a message to a specific client
func (h *Hub) SendToClient(clientID string, message interface{}) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var client *Client
	for c := range h.clients {
		if c.id == clientID {
			client = c
			break
		}
	}
	if client == nil {
		return false
	}

	jsonMsg, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Error marshaling message", zap.Error(err))
		return false
	}

	select {
	case client.send <- jsonMsg:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type identifyRequest struct {
	client *Client
	id     string
}

var _ events.Broadcaster = (*Hub)(nil)
