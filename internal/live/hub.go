package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"interop-dashboard/internal/chart"
	"interop-dashboard/internal/metrics"
	"interop-dashboard/internal/viewsync"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is one websocket frame sent to dashboards.
type Message struct {
	Type  string          `json:"type"` // "chart" or "state"
	Chart string          `json:"chart,omitempty"`
	Data  []int           `json:"data,omitempty"`
	State *viewsync.State `json:"state,omitempty"`
}

// Hub fans chart redraws and state changes out to connected browsers. It is the
// rendering surface of the charts. New clients first receive the latest frame
// of each kind so they do not wait for the next snapshot.
type Hub struct {
	log      *slog.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	last    map[string][]byte
	closed  bool
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns an empty hub. Mount it on the websocket route.
func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		log:     logger.With("component", "live"),
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
		last:    make(map[string][]byte),
	}
}

// Render implements chart.Renderer.
func (h *Hub) Render(f chart.Frame) {
	h.broadcast("chart:"+f.Chart, Message{Type: "chart", Chart: f.Chart, Data: f.Data})
}

// NotifyState implements viewsync.Notifier.
func (h *Hub) NotifyState(st viewsync.State) {
	h.broadcast("state", Message{Type: "state", State: &st})
}

func (h *Hub) broadcast(key string, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("encode frame", "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last[key] = payload
	for id, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("slow client dropped", "client", id)
			h.removeLocked(id)
		}
	}
}

// ServeHTTP upgrades the request and streams frames until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	h.log.Info("client connected", "client", c.id, "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c)
}

// register queues the latest frames for c and adds it to the fan-out.
// It reports false once the hub is closed.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	for _, payload := range h.last {
		c.send <- payload
	}
	h.clients[c.id] = c
	h.metrics.WSClients(1)
	return true
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id := range h.clients {
		h.removeLocked(id)
	}
}

func (h *Hub) removeLocked(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.send)
	h.metrics.WSClients(-1)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

// readPump only watches for close and pong frames; dashboards send nothing.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c.id)
		_ = c.conn.Close()
		h.log.Info("client disconnected", "client", c.id)
	}()
	c.conn.SetReadLimit(512)
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

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
