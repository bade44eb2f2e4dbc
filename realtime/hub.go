package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// writeWait bounds how long a broadcast write may block on a slow peer
// before the connection is dropped.
const writeWait = time.Second

// OrderEvent is the payload broadcast to joined admins when a customer
// places an order.
type OrderEvent struct {
	OrderID      string    `json:"orderId"`
	CustomerName string    `json:"customerName"`
	TotalPrice   float64   `json:"totalPrice"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Hub tracks the admin-group websocket connections. Membership is in-memory
// only; a restart drops every connection and clients must rejoin. Delivery is
// at most once, best effort while connected.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
}

// NewHub returns an empty admin group.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and parks the connection in the admin group
// until the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.add(conn)
	defer h.remove(conn)

	// Drain control/ping frames; any read error means the peer is gone.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// ClientCount reports how many admins are currently joined.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastNewOrder pushes the event to every joined admin. Each write is
// bounded by writeWait; connections that time out or fail are dropped from
// the group, so one stalled peer cannot hold up the rest.
func (h *Hub) BroadcastNewOrder(ev OrderEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
