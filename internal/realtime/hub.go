// Package realtime streams ledger events to the owner's open websocket
// connections.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"saldo/internal/log"
	"saldo/internal/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

type client struct {
	ownerID string
	conn    *websocket.Conn
	send    chan []byte
}

type envelope struct {
	ownerID string
	payload []byte
}

// Hub tracks connections per owner. All map access happens on the Run
// goroutine.
type Hub struct {
	clients    map[string]map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan envelope
	count      chan chan int
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     *log.Logger
}

var _ ports.Notifier = (*Hub)(nil)

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Discard()
	}
	return &Hub{
		clients:    make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan envelope, 64),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.WithComponent(log.ComponentRealtime),
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*client]struct{})
			return
		case c := <-h.register:
			set, ok := h.clients[c.ownerID]
			if !ok {
				set = make(map[*client]struct{})
				h.clients[c.ownerID] = set
			}
			set[c] = struct{}{}
			h.logger.Debug("Client connected", log.FieldOwnerID, c.ownerID, "connections", len(set))
		case c := <-h.unregister:
			h.drop(c)
		case msg := <-h.broadcast:
			for c := range h.clients[msg.ownerID] {
				select {
				case c.send <- msg.payload:
				default:
					// Slow consumer.
					h.drop(c)
				}
			}
		case reply := <-h.count:
			n := 0
			for _, set := range h.clients {
				n += len(set)
			}
			reply <- n
		}
	}
}

func (h *Hub) drop(c *client) {
	set, ok := h.clients[c.ownerID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.ownerID)
	}
}

// Notify queues e for the connections of ownerID. It never blocks; events
// are dropped when the queue is full.
func (h *Hub) Notify(ownerID string, e ports.LedgerEvent) {
	payload, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("Failed to encode event", log.FieldError, err.Error())
		return
	}
	select {
	case h.broadcast <- envelope{ownerID: ownerID, payload: payload}:
	default:
		h.logger.Warn("Event dropped, broadcast queue full", log.FieldOwnerID, ownerID)
	}
}

// Connections returns the number of open connections, or 0 once Run has
// stopped.
func (h *Hub) Connections() int {
	reply := make(chan int)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Serve upgrades r and streams the events of ownerID until the peer goes
// away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, ownerID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", log.FieldError, err.Error())
		return
	}
	c := &client{ownerID: ownerID, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages; it exists to process control frames
// and notice disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
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
