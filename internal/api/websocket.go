package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/controlportero/portero-core/internal/infrastructure/logging"
)

// wsSendBufferSize is the per-client outbound queue. A client that
// falls this far behind starts losing events rather than blocking the
// hub.
const wsSendBufferSize = 256

const (
	wsWriteTimeout = 10 * time.Second

	defaultPingInterval   = 30 * time.Second
	defaultPongTimeout    = 60 * time.Second
	defaultMaxMessageSize = 4096
)

// WSMessage is the envelope for all WebSocket traffic.
type WSMessage struct {
	Type    string          `json:"type"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Hub tracks connected WebSocket clients and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	logger  *logging.Logger
}

func newHub(logger *logging.Logger) *Hub {
	return &Hub{
		clients: make(map[*WSClient]struct{}),
		logger:  logger,
	}
}

// WSClient is one connected WebSocket session.
type WSClient struct {
	conn   *websocket.Conn
	send   chan []byte
	userID string
	role   string

	mu            sync.Mutex
	subscriptions map[string]struct{}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel. Safe to
// call more than once for the same client.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastEvent sends an event to every client subscribed to it.
// Clients that have not subscribed to anything receive all events.
func (h *Hub) BroadcastEvent(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshalling ws event failed", "event", event, "error", err)
		return
	}
	msg, err := json.Marshal(WSMessage{Type: "event", Event: event, Payload: data})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.wants(event) {
			h.trySend(c, msg)
		}
	}
}

// trySend queues a message without blocking. The recover guards the
// race where the client unregisters and the channel closes between the
// membership check and the send.
func (h *Hub) trySend(c *WSClient, msg []byte) {
	defer func() {
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("ws client send buffer full, dropping event", "user_id", c.userID)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (c *WSClient) wants(event string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subscriptions) == 0 {
		return true
	}
	_, ok := c.subscriptions[event]
	return ok
}

func (c *WSClient) subscribe(event string) {
	c.mu.Lock()
	c.subscriptions[event] = struct{}{}
	c.mu.Unlock()
}

func (c *WSClient) unsubscribe(event string) {
	c.mu.Lock()
	delete(c.subscriptions, event)
	c.mu.Unlock()
}

// handleWebSocket upgrades the connection after validating a
// single-use ticket passed as the ?ticket= query parameter.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "missing ticket")
		return
	}
	entry, ok := s.tickets.redeem(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || isAllowedOrigin(origin, s.cfg.CORS.AllowedOrigins)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		userID:        entry.userID,
		role:          entry.role,
		subscriptions: make(map[string]struct{}),
	}
	s.hub.Register(client)
	s.logger.Info("ws client connected", "user_id", client.userID)

	go s.writePump(client)
	go s.readPump(client)
}

func (s *Server) pingInterval() time.Duration {
	if s.wsCfg.PingInterval > 0 {
		return time.Duration(s.wsCfg.PingInterval) * time.Second
	}
	return defaultPingInterval
}

func (s *Server) pongTimeout() time.Duration {
	if s.wsCfg.PongTimeout > 0 {
		return time.Duration(s.wsCfg.PongTimeout) * time.Second
	}
	return defaultPongTimeout
}

// readPump consumes client messages until the connection drops.
func (s *Server) readPump(c *WSClient) {
	defer func() {
		s.hub.Unregister(c)
		_ = c.conn.Close()
		s.logger.Info("ws client disconnected", "user_id", c.userID)
	}()

	maxSize := int64(s.wsCfg.MaxMessageSize)
	if maxSize <= 0 {
		maxSize = defaultMaxMessageSize
	}
	c.conn.SetReadLimit(maxSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(s.pongTimeout()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.pongTimeout()))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(c, "invalid message")
			continue
		}

		switch msg.Type {
		case "subscribe":
			if msg.Event == "" {
				s.sendError(c, "subscribe requires an event")
				continue
			}
			c.subscribe(msg.Event)
			s.sendResponse(c, "subscribed", msg.Event)
		case "unsubscribe":
			if msg.Event == "" {
				s.sendError(c, "unsubscribe requires an event")
				continue
			}
			c.unsubscribe(msg.Event)
			s.sendResponse(c, "unsubscribed", msg.Event)
		case "ping":
			s.sendResponse(c, "pong", "")
		default:
			s.sendError(c, "unknown message type")
		}
	}
}

// writePump drains the send channel to the connection and keeps the
// session alive with periodic pings.
func (s *Server) writePump(c *WSClient) {
	ticker := time.NewTicker(s.pingInterval())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendResponse(c *WSClient, responseType, event string) {
	msg, err := json.Marshal(WSMessage{Type: "response", Event: event, Payload: mustRaw(responseType)})
	if err != nil {
		return
	}
	s.hub.trySend(c, msg)
}

func (s *Server) sendError(c *WSClient, message string) {
	msg, err := json.Marshal(WSMessage{Type: "error", Error: message})
	if err != nil {
		return
	}
	s.hub.trySend(c, msg)
}

func mustRaw(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}
