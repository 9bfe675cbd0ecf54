package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/estimatelens/estimatelens/internal/compute"
	"github.com/estimatelens/estimatelens/internal/window"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

// EventDashboard is the event name of every hub message.
const EventDashboard = "dashboard"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
	// Allow all origins — callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string             `json:"event"`
	Data  *compute.Dashboard `json:"data"`
}

// Dashboards computes the dashboard for a window. *compute.Service satisfies it.
type Dashboards interface {
	Dashboard(sel window.Selection) (*compute.Dashboard, error)
	DefaultWindow() window.Window
}

// Hub manages WebSocket client connections and broadcasts dashboards to them.
type Hub struct {
	src      Dashboards
	interval time.Duration
	kick     chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	sel  window.Selection
	send chan []byte
}

// New creates a Hub that reads from src and broadcasts every interval.
func New(src Dashboards, interval time.Duration) *Hub {
	return &Hub{
		src:      src,
		interval: interval,
		kick:     make(chan struct{}, 1),
		clients:  make(map[*client]struct{}),
	}
}

// Run starts the broadcast loop. Run blocks until ctx is cancelled, then
// closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.broadcast()
		case <-h.kick:
			h.broadcast()
		}
	}
}

// Notify requests an immediate broadcast. It never blocks; concurrent
// requests collapse into one.
func (h *Hub) Notify() {
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel, err := window.Select(q.Get("window"), q.Get("since"), h.src.DefaultWindow())
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}) //nolint:errcheck
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		sel:  sel,
		send: make(chan []byte, sendBufSize),
	}
	// Queue the current dashboard so the UI has data right away.
	if data, err := h.buildMessage(sel); err == nil {
		c.send <- data
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// broadcast computes one message per distinct selection and fans it out.
// Sends happen under the read lock so unregister cannot close a channel
// mid-send.
func (h *Hub) broadcast() {
	h.mu.RLock()
	sels := make(map[window.Selection]struct{})
	for c := range h.clients {
		sels[c.sel] = struct{}{}
	}
	h.mu.RUnlock()

	msgs := make(map[window.Selection][]byte, len(sels))
	for sel := range sels {
		data, err := h.buildMessage(sel)
		if err != nil {
			slog.Error("ws: build dashboard", "window", sel.Label(), "err", err)
			continue
		}
		msgs[sel] = data
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		data, ok := msgs[c.sel]
		if !ok {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// Clients whose outgoing buffer is full are disconnected.
	for _, c := range slow {
		h.unregister(c)
	}
}

func (h *Hub) buildMessage(sel window.Selection) ([]byte, error) {
	d, err := h.src.Dashboard(sel)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: EventDashboard, Data: d})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
