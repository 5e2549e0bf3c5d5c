package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/posture-coach/engine/internal/models"
	"github.com/posture-coach/engine/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the desktop companion app connects from a local origin
	},
}

// Client represents a connected WebSocket client, optionally filtered to a
// single session's ticks.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	sessionID string // optional filter
}

// Hub maintains active WebSocket clients and fans out engine ticks.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan tickMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

type tickMessage struct {
	sessionID string
	payload   []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan tickMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			observability.WSConnections.Inc()
			slog.Debug("ws client connected", "session", client.sessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			observability.WSConnections.Dec()
			slog.Debug("ws client disconnected")

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if client.sessionID != "" && client.sessionID != msg.sessionID {
					continue
				}

				select {
				case client.send <- msg.payload:
				default:
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastTick sends one engine tick to all clients subscribed to sessionID
// (or unfiltered clients).
func (h *Hub) BroadcastTick(sessionID string, tick *models.EngineTick) {
	data, err := json.Marshal(tick)
	if err != nil {
		slog.Error("marshal tick", "error", err)
		return
	}
	h.broadcast <- tickMessage{sessionID: sessionID, payload: data}
}

// HandleWS handles WebSocket upgrade requests.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	sessionFilter := c.Query("session_id")

	client := &Client{
		conn:      conn,
		send:      make(chan []byte, 64),
		sessionID: sessionFilter,
	}

	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		// Incoming client messages are not processed; this loop only
		// detects disconnection.
	}
}
