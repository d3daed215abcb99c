// Package stream pushes newly published flag segments to WebSocket
// subscribers.
package stream

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segments"
	"github.com/dqtools/segments/pkg/logger"
)

// Update is one stream message: a flag whose segments changed.
type Update struct {
	Name   string        `json:"name"`
	Known  segments.List `json:"known"`
	Active segments.List `json:"active"`
}

// Hub fans published flags out to connected WebSocket clients. Slow
// clients are disconnected rather than allowed to stall the fan-out.
type Hub struct {
	logger   *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan Update
}

// NewHub creates a new stream hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection until the
// client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan Update, 16),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.WithField("clients", n).Debug("Stream client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

// Publish broadcasts a flag to every connected client. It never blocks;
// clients with a full send buffer are dropped.
func (h *Hub) Publish(f *flags.Flag) {
	update := Update{
		Name:   f.Name,
		Known:  f.Known,
		Active: f.Active,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- update:
		default:
			h.dropLocked(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) writeLoop(c *client) {
	for update := range c.send {
		if err := c.conn.WriteJSON(update); err != nil {
			h.logger.WithError(err).Debug("Stream write failed")
			break
		}
	}
	c.conn.Close()
}

// readLoop discards inbound frames; it exists to observe the close
// handshake and tear the client down.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

// dropLocked removes a client; the hub mutex must be held.
func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}
