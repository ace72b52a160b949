package service

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/domain"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn   *websocket.Conn
	source string // empty means every source
	send   chan domain.StatusEvent
}

func (c *client) wants(ev domain.StatusEvent) bool {
	return c.source == "" || c.source == ev.SourceID
}

// Hub fans status events out to connected websocket clients. A client whose
// buffer is full is disconnected instead of stalling the broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	metrics *metrics.Registry
	log     *logger.Logger
}

func NewHub(m *metrics.Registry, lg *logger.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), metrics: m, log: lg}
}

// ServeWS upgrades the request and registers the client. ?source=table:3
// restricts the stream to one table or parcel.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws_upgrade_failed", map[string]any{"error": err.Error()})
		return
	}
	c := &client{conn: conn, source: r.URL.Query().Get("source"), send: make(chan domain.StatusEvent, sendBuffer)}
	h.add(c)
	h.log.Info("ws_client_connected", map[string]any{"remote": r.RemoteAddr, "source": c.source})

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Broadcast queues ev for every interested client and returns how many got it.
func (h *Hub) Broadcast(ev domain.StatusEvent) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.clients {
		if !c.wants(ev) {
			continue
		}
		select {
		case c.send <- ev:
			n++
		default:
			h.log.Warn("ws_client_slow", map[string]any{"remote": c.conn.RemoteAddr().String()})
			h.removeLocked(c)
		}
	}
	return n
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.metrics.WSClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.WSClients.Set(float64(len(h.clients)))
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readLoop discards client frames; it exists to process pongs and notice
// the client going away.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
