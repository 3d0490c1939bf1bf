// notify/websocket.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 64
)

// Hub is a Notifier that broadcasts every message to all connected
// websocket clients. Clients that fall behind or whose connection fails
// are dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool

	upgrader websocket.Upgrader
	lg       *log.Logger
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewHub(lg *log.Logger) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		lg: lg,
	}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lg.Errorf("Unable to upgrade websocket: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.lg.Infof("websocket client %s connected (%d total)", r.RemoteAddr, n)

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop discards anything the client sends; it exists to notice when
// the connection goes away.
func (h *Hub) readLoop(c *wsClient) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.lg.Debugf("websocket read: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *wsClient) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.lg.Warnf("websocket write: %v; dropping client", err)
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *wsClient) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()

		close(c.send)
		c.conn.Close()
	})
}

// Broadcast sends msg to every connected client.
func (h *Hub) Broadcast(msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	var slow []*wsClient
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.lg.Warnf("websocket client %s is not keeping up; dropping", c.conn.RemoteAddr())
		h.drop(c)
	}
	return nil
}

func (h *Hub) PublishRouteUpdate(routeID string, r *aviation.Route) error {
	return h.Broadcast(RouteUpdateMessage(r))
}

func (h *Hub) PublishWaypointStatus(routeID, waypointID string, s aviation.WaypointStatus) error {
	return h.Broadcast(WaypointStatusMessage(routeID, waypointID, s))
}

func (h *Hub) NumClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		h.drop(c)
	}
}
