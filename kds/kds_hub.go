// Package kds fans POS events out to connected terminals (cashier screens,
// kitchen display) over websockets.
package kds

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const (
	// writeWait bounds a single frame write to one terminal.
	writeWait = 10 * time.Second
	// sendBuffer is how many frames a terminal may lag behind before it is dropped.
	sendBuffer = 32
)

// Conn is the subset of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type client struct {
	conn Conn
	role string
	send chan []byte
}

// Hub menampung semua client (cashier, waiter, chef) yang terhubung.
// Setiap client punya antrian kirim sendiri, jadi broadcast tidak pernah
// menunggu socket yang lambat.
type Hub struct {
	clients map[Conn]*client
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[Conn]*client)}
}

// RegisterClient -> menambahkan connection ke set dengan role
func (h *Hub) RegisterClient(conn Conn, role string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		return
	}
	c := &client{conn: conn, role: role, send: make(chan []byte, sendBuffer)}
	h.clients[conn] = c
	go h.writePump(c)
}

// UnregisterClient -> melepaskan connection. Its writer flushes frames already
// queued, then closes the socket.
func (h *Hub) UnregisterClient(conn Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(conn)
}

// ClientCount returns the number of registered terminals.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Notify implements events.Notifier by broadcasting to every client.
func (h *Hub) Notify(_ context.Context, e events.Event) {
	h.broadcast(e)
}

func (h *Hub) broadcast(e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, c := range h.clients {
		select {
		case c.send <- data:
		default:
			utils.ErrorLogger.WithField("role", c.role).Printf("Client too slow for %s, dropping it", e.Name)
			h.removeLocked(conn)
		}
	}
	utils.InfoLogger.Debugf("Broadcast %s to %d clients", e.Name, len(h.clients))
}

// removeLocked must be called with h.mutex held.
func (h *Hub) removeLocked(conn Conn) {
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(c.send)
}

// writePump owns the socket: it is the only goroutine that writes to or
// closes it.
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			h.UnregisterClient(c.conn)
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.WithField("role", c.role).Printf("Error sending to client, dropping it: %v", err)
			h.UnregisterClient(c.conn)
			return
		}
	}
}
