package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"loom-backend/application/services"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024

	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a WebSocket client connection
type Client struct {
	id          string
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	completions *services.CompletionService
	logger      *zap.Logger
}

// ServeWS upgrades an HTTP request to a websocket connection and starts
// the client's pumps.
func ServeWS(hub *Hub, completions *services.CompletionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			id:          uuid.New().String(),
			hub:         hub,
			conn:        conn,
			send:        make(chan []byte, sendBufferSize),
			completions: completions,
			logger:      logger.With(zap.String("client_id", uuid.New().String())),
		}
		client.start()
	}
}

func (c *Client) start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

// inboundMessage is what clients send over the socket. The only inbound
// operation is a streamed completion; every mutation uses the REST API.
type inboundMessage struct {
	Type     string `json:"type"`
	ParentID string `json:"parent_id,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendJSON("error", map[string]string{"message": "invalid message"})
		return
	}

	switch msg.Type {
	case "completion":
		go c.runCompletion(msg)
	case "ping":
		c.sendJSON("pong", nil)
	default:
		c.sendJSON("error", map[string]string{"message": "unknown message type " + msg.Type})
	}
}

// runCompletion streams a completion back to this client chunk by
// chunk, then reports the committed node. Tree events from the commit
// reach all clients through the hub's event subscription.
func (c *Client) runCompletion(msg inboundMessage) {
	req := services.CompletionRequest{ParentID: msg.ParentID, Prompt: msg.Prompt}
	result, err := c.completions.Complete(c.hub.ctx, req, func(chunk string) {
		c.sendJSON("completion_chunk", map[string]string{"content": chunk})
	})
	if err != nil {
		c.logger.Warn("websocket completion failed", zap.Error(err))
		c.sendJSON("completion_error", map[string]string{"message": err.Error()})
		return
	}
	c.sendJSON("completion_done", result)
}

func (c *Client) sendJSON(messageType string, data interface{}) {
	payload, err := json.Marshal(BroadcastMessage{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.logger.Warn("send buffer full, dropping message", zap.String("type", messageType))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
