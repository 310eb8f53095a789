// Package realtime pushes group progress events to connected dashboards over
// websockets. The hub fans events out per group; the ledger write path is the
// only publisher.
package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 25 * time.Second
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens before the upgrade via the JWT middleware; cookies
		// carry the session so same-origin policy is handled there.
		return true
	},
}

// ProgressEvent is broadcast to a group's subscribers whenever a participant
// logs progress.
type ProgressEvent struct {
	GroupID       string `json:"group_id"`
	GoalID        string `json:"goal_id"`
	PeriodID      string `json:"period_id"`
	UserID        string `json:"user_id"`
	Date          string `json:"date"`
	Amount        string `json:"amount"`
	CurrentAmount string `json:"current_amount"`
	IsCompleted   bool   `json:"is_completed"`
}

type client struct {
	conn    *websocket.Conn
	groupID string
	send    chan []byte
}

// Hub tracks subscribers per group and fans out published events.
type Hub struct {
	mu         sync.RWMutex
	groups     map[string]map[*client]struct{}
	register   chan *client
	unregister chan *client
}

func NewHub() *Hub {
	return &Hub{
		groups:     make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run processes subscribe/unsubscribe traffic. Start once, in its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.groups[c.groupID] == nil {
				h.groups[c.groupID] = make(map[*client]struct{})
			}
			h.groups[c.groupID][c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.groups[c.groupID]; ok {
				if _, ok := clients[c]; ok {
					delete(clients, c)
					close(c.send)
					if len(clients) == 0 {
						delete(h.groups, c.groupID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish sends an event to every subscriber of the event's group. Slow
// subscribers are dropped rather than allowed to block the ledger write path.
// Safe to call on a nil hub (realtime disabled).
func (h *Hub) Publish(event ProgressEvent) {
	if h == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal progress event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.groups[event.GroupID] {
		select {
		case c.send <- payload:
		default:
			slog.Warn("dropping slow realtime subscriber", "group_id", event.GroupID)
			go func(c *client) { h.unregister <- c }(c)
		}
	}
}

// Subscribe upgrades the request to a websocket and streams the group's
// progress events until the peer disconnects. The caller must have verified
// group membership already.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, groupID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err, "group_id", groupID)
		return
	}

	c := &client{
		conn:    conn,
		groupID: groupID,
		send:    make(chan []byte, sendBufferSize),
	}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			err := c.conn.WriteMessage(websocket.TextMessage, payload)
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; subscribers are read-only. It exists to
// notice disconnects and answer pings.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
	}
}
