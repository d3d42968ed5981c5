package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"loom-backend/application/ports"
	"loom-backend/domain/events"
)

// Hub maintains active WebSocket connections and fans tree events out
// to every connected client. The workspace is single-tenant, so every
// event goes to every connection.
type Hub struct {
	connections map[*Client]bool
	mu          sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// BroadcastMessage is one message pushed to clients
type BroadcastMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		connections: make(map[*Client]bool),
		register:    make(chan *Client, 16),
		unregister:  make(chan *Client, 16),
		broadcast:   make(chan *BroadcastMessage, 256),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SubscribeToEvents wires the hub to the domain event bus so clients
// see every committed tree change.
func (h *Hub) SubscribeToEvents(bus ports.EventBus) {
	bus.Subscribe("*", func(ctx context.Context, event events.DomainEvent) {
		h.Broadcast(event.GetEventType(), event)
	})
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("websocket hub shutting down")
			h.closeAllConnections()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.connections[client] = true
			h.mu.Unlock()
			h.logger.Info("websocket client connected", zap.String("client_id", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[client]; ok {
				delete(h.connections, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("websocket client disconnected", zap.String("client_id", client.id))

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Broadcast queues a message for all connected clients
func (h *Hub) Broadcast(messageType string, data interface{}) {
	message := &BroadcastMessage{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message",
			zap.String("type", messageType))
	}
}

// Shutdown stops the hub and closes every connection
func (h *Hub) Shutdown() {
	h.cancel()
}

// ConnectionCount returns the number of active connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) deliver(message *BroadcastMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to encode broadcast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.connections {
		select {
		case client.send <- payload:
		default:
			// Slow consumer, drop the message rather than stall the hub.
			h.logger.Warn("dropping message for slow websocket client",
				zap.String("client_id", client.id))
		}
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.connections {
		close(client.send)
		delete(h.connections, client)
	}
}
