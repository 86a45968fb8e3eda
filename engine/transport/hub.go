package transport

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = 40 * time.Second
	sendBuffer = 32
)

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans JSON messages out to every connected websocket client.
// The latest message is replayed to clients as they connect.
type Hub struct {
	mu      *sync.Mutex
	clients map[*client]bool
	last    []byte
	dropped uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		mu:      &sync.Mutex{},
		clients: make(map[*client]bool),
	}
}

// Broadcast encodes v as JSON and queues it for every client.
// A client whose queue is full misses the message rather than stalling the others.
//
// Parameters:
//   - v: the message
//
// Returns:
//   - error: error if v cannot be encoded
func (h *Hub) Broadcast(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode broadcast")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped++
		}
	}
	return nil
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many messages were skipped for slow clients.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// attach registers conn and runs its pumps. It returns once the client disconnects.
func (h *Hub) attach(conn *websocket.Conn) {
	id, err := uuid.NewRandom()
	if err != nil {
		log.Printf("[Hub] Failed to generate client id: %v", err)
		conn.Close()
		return
	}
	c := &client{id: id, conn: conn, send: make(chan []byte, sendBuffer), hub: h}

	h.mu.Lock()
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()
	log.Printf("[Hub] Client %s connected", c.id)

	go c.writePump()
	c.readPump()
}

func (h *Hub) detach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		log.Printf("[Hub] Client %s disconnected", c.id)
	}
}

// readPump discards inbound messages and detects the close.
func (c *client) readPump() {
	defer c.hub.detach(c)
	c.conn.SetReadLimit(512)
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

func (c *client) writePump() {
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
				log.Printf("[Hub] Write to %s failed: %v", c.id, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[Hub] Ping to %s failed: %v", c.id, err)
				return
			}
		}
	}
}
