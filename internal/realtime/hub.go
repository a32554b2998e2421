// Package realtime streams batch progress to websocket subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 대시보드는 다른 포트에서 접속
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans progress events out to connected clients
// ⭐ SSOT: 진행 상황 브로드캐스트는 여기서만
type Hub struct {
	logger *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    *Event

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub creates a hub; call Run to start it
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:     log.WithField("module", "realtime"),
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
}

// Run serves register/unregister/broadcast until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			last := h.last
			h.mu.Unlock()

			if last != nil {
				snapshot := *last
				snapshot.Type = EventSnapshot
				if data, err := json.Marshal(snapshot); err == nil {
					c.send <- data
				}
			}

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// 느린 클라이언트는 끊음
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish implements contracts.ProgressFunc. It never blocks the batch:
// when the broadcast buffer is full the event is dropped.
func (h *Hub) Publish(p contracts.Progress) {
	event := Event{Type: EventProgress, Progress: p, Timestamp: time.Now()}

	h.mu.Lock()
	h.last = &event
	h.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode progress")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.WithField("code", p.Code).Debug("Progress event dropped")
	}
}

// Last returns the most recent event (nil before the first run)
func (h *Hub) Last() *Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return nil
	}
	e := *h.last
	return &e
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches the connection to the hub
// GET /ws/progress
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// client is a middleman between one websocket connection and the hub
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump only drains control frames; clients send nothing meaningful
func (c *client) readPump() {
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
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Debug("Unexpected WebSocket close")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
