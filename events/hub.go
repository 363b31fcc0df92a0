package events

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/models"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is what websocket clients receive
type Message struct {
	Event models.EventType      `json:"event"`
	Data  models.ComplaintEvent `json:"data"`
}

// Hub keeps the connected websocket clients and broadcasts complaint events to them.
// A client connected with ?region= only receives events of that region.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
}

type client struct {
	conn   *websocket.Conn
	region string
	// one writer per connection
	mu sync.Mutex
}

func (c *client) write(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// NewHub returns an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

// ServeHTTP upgrades the connection and keeps it registered until the client leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade error", "error", err)
		return
	}
	region := r.URL.Query().Get("region")

	h.mutex.Lock()
	h.clients[conn] = &client{conn: conn, region: region}
	h.mutex.Unlock()
	zap.S().Debugw("client connected to /ws/complaints", "region", region)

	// clients only listen; reading detects the disconnect
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.remove(conn)
			break
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// HandleEvent broadcasts event to every interested client. Writes run in parallel
// outside the hub lock and clients whose write fails are dropped.
func (h *Hub) HandleEvent(_ context.Context, event models.ComplaintEvent) {
	h.mutex.Lock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		if c.region != "" && c.region != event.Complaint.Region {
			continue
		}
		targets = append(targets, c)
	}
	h.mutex.Unlock()

	msg := Message{Event: event.Type, Data: event}
	var wg sync.WaitGroup
	for _, c := range targets {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			if err := c.write(msg); err != nil {
				zap.S().Warnw("error broadcasting complaint event", "complaintId", event.ComplaintID, "error", err)
				h.remove(c.conn)
			}
		}(c)
	}
	wg.Wait()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mutex.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mutex.Unlock()
	if ok {
		conn.Close()
	}
}
