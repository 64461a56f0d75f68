package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/seenimoa/yieldboard/internal/chart"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware governs browser access
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Selection events can carry
	// many points.
	maxMessageSize = maxEventBytes

	sendBuffer = 64
)

// Message types exchanged over the socket.
const (
	MsgHistory    = "history"     // client: {start,end}; server: history Spec
	MsgHover      = "hover"       // client: hover event
	MsgSelect     = "select"      // client: selection event
	MsgYieldCurve = "yield_curve" // server: snapshot Spec
	MsgSpread     = "spread"      // client: {field}; server: spread Spec
	MsgError      = "error"       // server: error text
	MsgWelcome    = "welcome"     // server: {client_id}
	MsgPing       = "ping"
	MsgPong       = "pong"
)

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// wsInbound is a client message with its payload left raw.
type wsInbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type historyParams struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type spreadParams struct {
	Field string `json:"field"`
}

// handleWebSocket upgrades the connection and answers chart queries for
// the dashboard.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := newWSClient(s.wsHub)
	s.wsHub.Register(client)
	client.trySend(WSMessage{Type: MsgWelcome, Data: map[string]string{"client_id": client.ID}})

	go wsWritePump(conn, client)
	go wsReadPump(conn, client, s)
}

// reply computes the answer to one client message.
func (s *Server) reply(in wsInbound) WSMessage {
	switch in.Type {
	case MsgHistory:
		var p historyParams
		if len(in.Data) > 0 && string(in.Data) != "null" {
			if err := json.Unmarshal(in.Data, &p); err != nil {
				return WSMessage{Type: MsgError, Data: "invalid history parameters"}
			}
		}
		spec, err := s.figure(figureHistory, url.Values{"start": {p.Start}, "end": {p.End}})
		if err != nil {
			return WSMessage{Type: MsgError, Data: err.Error()}
		}
		return WSMessage{Type: MsgHistory, Data: spec}

	case MsgHover, MsgSelect:
		d := chart.SelectedDate(chart.DecodeEvent(in.Data))
		return WSMessage{Type: MsgYieldCurve, Data: chart.Snapshot(s.tables, d)}

	case MsgSpread:
		var p spreadParams
		if len(in.Data) > 0 && string(in.Data) != "null" {
			if err := json.Unmarshal(in.Data, &p); err != nil {
				return WSMessage{Type: MsgError, Data: "invalid spread parameters"}
			}
		}
		spec, err := s.figure(figureSpread, url.Values{"field": {p.Field}})
		if err != nil {
			return WSMessage{Type: MsgError, Data: err.Error()}
		}
		return WSMessage{Type: MsgSpread, Data: spec}

	case MsgPing:
		return WSMessage{Type: MsgPong}
	}
	return WSMessage{Type: MsgError, Data: fmt.Sprintf("unknown message type %q", in.Type)}
}

// wsReadPump reads client messages and queues the replies.
func wsReadPump(conn *websocket.Conn, client *WSClient, s *Server) {
	defer func() {
		client.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", "client", client.ID, "err", err)
			}
			return
		}

		var in wsInbound
		if err := json.Unmarshal(message, &in); err != nil {
			client.trySend(WSMessage{Type: MsgError, Data: "invalid message"})
			continue
		}
		if !client.trySend(s.reply(in)) {
			return
		}
	}
}

// wsWritePump writes queued messages and keeps the connection alive.
func wsWritePump(conn *websocket.Conn, client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSClient represents a single WebSocket connection.
type WSClient struct {
	ID   string
	hub  *WSHub
	send chan WSMessage

	mu     sync.Mutex
	closed bool
}

func newWSClient(hub *WSHub) *WSClient {
	return &WSClient{
		ID:   uuid.NewString(),
		hub:  hub,
		send: make(chan WSMessage, sendBuffer),
	}
}

// trySend queues msg without blocking. It reports false once the client is
// closed or its buffer is full.
func (c *WSClient) trySend(msg WSMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// WSHub tracks WebSocket connections and broadcasts server notices.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{}
	logger     *slog.Logger
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub(logger *slog.Logger) *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 16),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub event loop. It returns when ctx is cancelled, closing
// every client.
func (h *WSHub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			client.close()
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", "client", client.ID, "clients", n)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", "client", client.ID)
		case msg := <-h.broadcast:
			var slow []*WSClient
			h.mu.RLock()
			for client := range h.clients {
				if !client.trySend(msg) {
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			if len(slow) > 0 {
				h.mu.Lock()
				for _, client := range slow {
					delete(h.clients, client)
					client.close()
				}
				h.mu.Unlock()
			}
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub. After the hub stops, the client is
// closed immediately.
func (h *WSHub) Register(client *WSClient) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
