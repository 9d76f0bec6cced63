// Package events streams deletion events to websocket clients.
package events

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"

	"dirsage/internal/cleanup"
	"dirsage/internal/logging"
	"dirsage/internal/metrics"
	"dirsage/internal/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Message is the envelope written to every client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client represents a WebSocket client connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans deletion events out to connected clients. The client set is
// only mutated by Run; ClientCount may be called from any goroutine.
type Hub struct {
	clients    *xsync.MapOf[*Client, struct{}]
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *logging.Leveled
	upgrader   websocket.Upgrader
	origins    []string
}

// NewHub creates a hub; call Run before serving clients.
func NewHub(logger *log.Logger) *Hub {
	h := &Hub{
		clients:    xsync.NewMapOf[*Client, struct{}](),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logging.NewLeveled(logger),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// SetAllowedOrigins lists the cross-origin pages that may subscribe, "*"
// meaning any. Same-origin and non-browser clients are always accepted.
// Call before serving clients.
func (h *Hub) SetAllowedOrigins(origins []string) { h.origins = origins }

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	if middleware.OriginAllowed(origin, h.origins) {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin)
	return false
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.clients.Range(func(c *Client, _ struct{}) bool {
				h.drop(c)
				return true
			})
			return

		case client := <-h.register:
			h.clients.Store(client, struct{}{})
			metrics.SetWebsocketClients(h.clients.Size())
			h.logger.Info("Event client connected", "total", h.clients.Size())

		case client := <-h.unregister:
			if h.drop(client) {
				h.logger.Info("Event client disconnected", "total", h.clients.Size())
			}

		case message := <-h.broadcast:
			h.clients.Range(func(c *Client, _ struct{}) bool {
				select {
				case c.send <- message:
				default:
					h.drop(c)
				}
				return true
			})
		}
	}
}

func (h *Hub) drop(c *Client) bool {
	if _, ok := h.clients.LoadAndDelete(c); !ok {
		return false
	}
	close(c.send)
	metrics.SetWebsocketClients(h.clients.Size())
	return true
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	return h.clients.Size()
}

// NotifyDeletion queues ev for broadcast without blocking the caller.
func (h *Hub) NotifyDeletion(ev cleanup.DeletionEvent) {
	data, err := json.Marshal(Message{Type: "deletion", Data: ev})
	if err != nil {
		h.logger.Error("Failed to marshal deletion event", "error", err)
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Warn("Event queue full, dropping deletion event", "path", ev.Path)
	}
}

// HandleWebSocket upgrades the request and attaches the client to the hub.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump discards inbound frames and detects disconnects.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read failed", "error", err)
			}
			return
		}
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
