package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (CORS handled by main server)
		return true
	},
}

// SubscribeHook must call subscribe exactly once, passing the first message
// the client gets on channel (or nil). Broadcasts made after subscribe
// returns reach the client after that message.
type SubscribeHook func(channel string, subscribe func(first interface{}))

// Hub maintains active WebSocket connections and broadcasts messages
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Unregister requests from clients
	unregister chan *Client
	done       chan struct{}

	onSubscribe SubscribeHook
	log         *zap.SugaredLogger

	// Mutex for thread-safe access
	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// SetSubscribeHook installs hook; call it before serving clients.
func (h *Hub) SetSubscribeHook(hook SubscribeHook) {
	h.onSubscribe = hook
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.log.Infow("ws_client_disconnected", "client", client.id, "total", len(h.clients))
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToChannel sends a message to all clients subscribed to a channel.
// Clients whose buffer is full are dropped; they resync on reconnect.
func (h *Hub) BroadcastToChannel(channel string, data interface{}) {
	message, err := json.Marshal(data)
	if err != nil {
		h.log.Errorw("ws_marshal_failed", "channel", channel, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.IsSubscribed(channel) {
			continue
		}
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
			h.log.Warnw("ws_client_too_slow", "client", client.id, "channel", channel)
		}
	}
}

// add registers a client before its pumps start, so its first subscribe
// always finds it.
func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Infow("ws_client_connected", "client", c.id, "total", n)
}

// sendTo queues a message for one client if it is still registered.
func (h *Hub) sendTo(c *Client, data interface{}) {
	message, err := json.Marshal(data)
	if err != nil {
		h.log.Errorw("ws_marshal_failed", "client", c.id, "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- message:
	default:
	}
}

// ClientCount is the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client represents a WebSocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	// Subscribed channels
	subscriptions map[string]bool
	subsMu        sync.RWMutex
}

// IsSubscribed checks if client is subscribed to a channel
func (c *Client) IsSubscribed(channel string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return c.subscriptions[channel]
}

// Subscribe adds a channel subscription. With a hook set, the hook decides
// when the subscription takes effect relative to its first message.
func (c *Client) Subscribe(channel string) {
	subscribe := func(first interface{}) {
		c.subsMu.Lock()
		c.subscriptions[channel] = true
		c.subsMu.Unlock()
		if first != nil {
			c.hub.sendTo(c, first)
		}
	}
	if c.hub.onSubscribe != nil {
		c.hub.onSubscribe(channel, subscribe)
	} else {
		subscribe(nil)
	}
	c.hub.log.Debugw("ws_subscribed", "client", c.id, "channel", channel)
}

// Unsubscribe removes a channel subscription
func (c *Client) Unsubscribe(channel string) {
	c.subsMu.Lock()
	delete(c.subscriptions, channel)
	c.subsMu.Unlock()
	c.hub.log.Debugw("ws_unsubscribed", "client", c.id, "channel", channel)
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warnw("ws_read_failed", "client", c.id, "err", err)
			}
			break
		}

		// Handle subscription requests
		var req WSSubscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.hub.sendTo(c, ErrorResponse{Error: "invalid message", Message: err.Error()})
			continue
		}

		switch req.Op {
		case "subscribe":
			for _, channel := range req.Channels {
				c.Subscribe(channel)
			}
		case "unsubscribe":
			for _, channel := range req.Channels {
				c.Unsubscribe(channel)
			}
		default:
			c.hub.sendTo(c, ErrorResponse{Error: "unknown op", Message: req.Op})
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to current write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWebSocket handles WebSocket upgrade and client lifecycle
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws_upgrade_failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := &Client{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, 256),
		id:            conn.RemoteAddr().String(),
		subscriptions: make(map[string]bool),
	}

	s.hub.add(client)

	// Start read and write pumps in separate goroutines
	go client.writePump()
	go client.readPump()
}
