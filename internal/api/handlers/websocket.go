package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/agrisync/backend/internal/apierr"
	"github.com/onnwee/agrisync/backend/internal/cache"
	"github.com/onnwee/agrisync/backend/internal/logger"
	"github.com/onnwee/agrisync/backend/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	// Events buffered between the cache and the hub loop
	eventBuffer = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The route is behind the admin token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketMessage represents a message sent to clients
type WebSocketMessage struct {
	Type    string      `json:"type"` // "snapshot", "event", "subscribed"
	Payload interface{} `json:"payload"`
}

// subscribeMessage narrows the stream to some key domains and event types.
// Empty lists mean everything.
type subscribeMessage struct {
	Type    string   `json:"type"`
	Domains []string `json:"domains"`
	Events  []string `json:"events"`
}

// EventSource is the engine surface the hub listens to.
type EventSource interface {
	AddEventListener(fn cache.Listener) cache.ListenerID
	RemoveEventListener(id cache.ListenerID)
	Metrics() cache.Metrics
}

// Client represents a WebSocket client connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.RWMutex
	domains map[string]bool
	events  map[string]bool
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.TrimSpace(v)] = true
	}
	return set
}

func (c *Client) wants(ev cache.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.events != nil && !c.events[string(ev.Type)] {
		return false
	}
	if c.domains != nil {
		domain, _, _ := strings.Cut(ev.Key, ":")
		return c.domains[domain]
	}
	return true
}

// Hub fans cache events out to connected stream clients.
type Hub struct {
	src        EventSource
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	events     chan cache.Event
	done       chan struct{}
	dropped    atomic.Uint64

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(src EventSource) *Hub {
	return &Hub{
		src:        src,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan cache.Event, eventBuffer),
		done:       make(chan struct{}),
	}
}

// publish is the cache listener. It runs on the caller's goroutine and must
// never block, so events are dropped when the hub falls behind.
func (h *Hub) publish(ev cache.Event) {
	select {
	case h.events <- ev:
	default:
		h.dropped.Add(1)
	}
}

// Run listens to the cache until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	id := h.src.AddEventListener(h.publish)
	defer h.src.RemoveEventListener(id)
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			logger.Info("Cache event stream client connected", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				h.removeLocked(client)
				logger.Info("Cache event stream client disconnected", "total_clients", len(h.clients))
			}
			h.mu.Unlock()

		case ev := <-h.events:
			h.broadcast(ev)
		}
	}
}

func (h *Hub) removeLocked(c *Client) {
	delete(h.clients, c)
	close(c.send)
	metrics.WebSocketConnections.Dec()
}

func (h *Hub) broadcast(ev cache.Event) {
	data, err := json.Marshal(WebSocketMessage{Type: "event", Payload: ev})
	if err != nil {
		logger.Error("Failed to marshal cache event", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for client := range h.clients {
		if !client.wants(ev) {
			continue
		}
		select {
		case client.send <- data:
			sent++
		default:
			// Slow consumer.
			h.removeLocked(client)
		}
	}
	metrics.WebSocketMessagesSent.Add(float64(sent))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many events were discarded because the hub was busy.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// readPump applies subscribe messages until the connection closes.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket unexpected close", "error", err)
			}
			return
		}
		var msg subscribeMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "subscribe" {
			continue
		}
		c.mu.Lock()
		c.domains = toSet(msg.Domains)
		c.events = toSet(msg.Events)
		c.mu.Unlock()

		ack, _ := json.Marshal(WebSocketMessage{Type: "subscribed", Payload: msg})
		c.trySend(ack)
	}
}

// trySend queues data unless the hub already closed the client.
func (c *Client) trySend(data []byte) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WebSocketHandler streams cache events to operators.
type WebSocketHandler struct {
	hub *Hub
}

// NewWebSocketHandler creates a handler for a hub the caller runs.
func NewWebSocketHandler(hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// HandleWebSocket upgrades the connection, sends a metrics snapshot and then
// streams events.
// GET /api/admin/cache/events
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.hub.done:
		apierr.WriteErrorWithContext(w, r, apierr.SystemUnavailable("Event stream stopped"))
		return
	default:
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.WarnContext(r.Context(), "Failed to upgrade to WebSocket", "error", err)
		return
	}

	client := &Client{hub: h.hub, conn: conn, send: make(chan []byte, 256)}
	if data, err := json.Marshal(WebSocketMessage{Type: "snapshot", Payload: h.hub.src.Metrics()}); err == nil {
		client.send <- data
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
