package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StatusSnapshot is the fan-out unit this dashboard broadcasts: the
// latest published status of each module that has reported one.
type StatusSnapshot struct {
	PLD       string `json:"pld,omitempty"`
	Planner   string `json:"planner,omitempty"`
	Drone     string `json:"drone,omitempty"`
	UpdatedAt int64  `json:"updated_at_unix_ms"`
}

// hub fans one status snapshot at a time out to every connected websocket
// client through a register/unregister/broadcast loop; there is exactly
// one status stream, not one per device.
type hub struct {
	mu         sync.RWMutex
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	latest     StatusSnapshot
}

func newHub() *hub {
	return &hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// publish updates the latest snapshot and pushes it to every client.
func (h *hub) publish(s StatusSnapshot) {
	h.mu.Lock()
	h.latest = s
	h.mu.Unlock()

	data, err := json.Marshal(s)
	if err != nil {
		log.Printf("dashboard: marshaling status snapshot: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Printf("dashboard: broadcast channel full, dropping snapshot")
	}
}

func (h *hub) snapshot() StatusSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

type wsClient struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

func (h *hub) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("dashboard: websocket upgrade: %v", err)
		return
	}

	c := &wsClient{hub: h, conn: conn, send: make(chan []byte, 16)}
	h.register <- c

	if data, err := json.Marshal(h.snapshot()); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}

	go c.writePump()
	go c.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
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
