package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/gesturemix/internal/monitoring"
	"github.com/ayusman/gesturemix/internal/pipeline"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	full bool // wants hands and events
}

// Hub broadcasts each frame's output to connected WebSocket clients. A
// client that cannot keep up misses frames instead of slowing the pipeline.
// Clients get controls and mapping state only, unless they connect with
// ?detail=full to also receive smoothed hands and gesture events.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]struct{}
	full       int
	sendBuffer int
	dropped    atomic.Uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		sendBuffer: 8,
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade error: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		full: r.URL.Query().Get("detail") == "full",
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if c.full {
		h.full++
	}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and removes the client once the
// connection fails.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.mu.Lock()
		h.remove(c)
		h.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// Offer encodes out at most once per detail level and queues it for every
// client without blocking. Encoding happens outside the hub lock.
func (h *Hub) Offer(out pipeline.Output) {
	h.mu.RLock()
	n, full := len(h.clients), h.full
	h.mu.RUnlock()
	if n == 0 {
		return
	}

	var fullMsg, leanMsg []byte
	if full > 0 {
		fullMsg = h.encode(out)
	}
	if n > full {
		lean := out
		lean.Hands, lean.Events = nil, nil
		leanMsg = h.encode(lean)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		msg := leanMsg
		if c.full {
			msg = fullMsg
		}
		if msg == nil {
			// joined after the snapshot
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) encode(out pipeline.Output) []byte {
	msg, err := json.Marshal(out)
	if err != nil {
		monitoring.Logf("websocket: encode frame: %v", err)
		return nil
	}
	return msg
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many messages were skipped for slow clients.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.remove(c)
	}
}

// remove drops c and closes its queue. The caller holds the write lock.
func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if c.full {
		h.full--
	}
	close(c.send)
}
