package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// Conn is the subset of *websocket.Conn the hub writes to. Kept narrow so the
// registry can be exercised without open sockets.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Client wraps one live connection with its health metadata. A user may hold
// several clients at once (multiple tabs or devices); they all belong to the
// same channel.
type Client struct {
	Conn       Conn
	UserID     uint
	lastPong   time.Time
	pingTicker *time.Ticker
	closeChan  chan struct{}
	closeOnce  sync.Once
}

// Hub is the in-memory connection registry: user id to the set of currently
// open connections. Process-local, rebuilt from scratch on restart. Mutations
// and reads race under Fiber's goroutine-per-connection model, so everything
// goes through the mutex.
type Hub struct {
	rooms        map[uint]map[*Client]struct{}
	mu           sync.RWMutex
	pingInterval time.Duration
	pongTimeout  time.Duration
}

func NewHub() *Hub {
	hub := &Hub{
		rooms:        make(map[uint]map[*Client]struct{}),
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
	}

	go hub.connectionHealthChecker()

	return hub
}

// Register adds a connection to the user's channel and starts its keepalive.
// The first connection of a user announces user:online to everyone.
func (h *Hub) Register(userID uint, conn Conn) *Client {
	client := &Client{
		Conn:       conn,
		UserID:     userID,
		lastPong:   time.Now(),
		pingTicker: time.NewTicker(h.pingInterval),
		closeChan:  make(chan struct{}),
	}

	h.mu.Lock()
	room, exists := h.rooms[userID]
	if !exists {
		room = make(map[*Client]struct{})
		h.rooms[userID] = room
	}
	room[client] = struct{}{}
	total := len(h.rooms)
	first := len(room) == 1
	h.mu.Unlock()

	go h.pingRoutine(client)

	log.Printf("User %d connected (devices: %d, online users: %d)", userID, h.ConnectionCount(userID), total)

	if first {
		h.Broadcast(EventUserOnline, PresencePayload{UserID: userID})
	}
	return client
}

// Unregister removes one connection. The user stays online until their last
// connection goes; only then is user:offline announced.
func (h *Hub) Unregister(client *Client) {
	client.pingTicker.Stop()
	client.closeOnce.Do(func() { close(client.closeChan) })

	h.mu.Lock()
	room, exists := h.rooms[client.UserID]
	if exists {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.UserID)
		}
	}
	last := exists && len(room) == 0
	total := len(h.rooms)
	h.mu.Unlock()

	if !exists {
		return
	}

	log.Printf("User %d disconnected a device (online users: %d)", client.UserID, total)

	if last {
		h.Broadcast(EventUserOffline, PresencePayload{UserID: client.UserID})
	}
}

// IsOnline reports whether the user has at least one open connection.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID]) > 0
}

// OnlineUserIDs returns every user with at least one open connection.
func (h *Hub) OnlineUserIDs() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]uint, 0, len(h.rooms))
	for userID := range h.rooms {
		ids = append(ids, userID)
	}
	return ids
}

// ConnectionCount returns how many connections the user currently holds.
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Count returns the number of online users.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Push delivers an event to every connection of one user. Zero connections is
// a silent no-op, not an error: offline users pick durable state up on their
// next poll.
func (h *Hub) Push(userID uint, event string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: event, Data: data})
	if err != nil {
		log.Printf("Error marshaling %s for user %d: %v", event, userID, err)
		return err
	}

	for _, client := range h.clientsOf(userID) {
		if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("Error sending %s to user %d: %v", event, userID, err)
			h.Unregister(client)
		}
	}
	return nil
}

// PushToUsers delivers one event to each of the given users' channels.
func (h *Hub) PushToUsers(userIDs []uint, event string, data interface{}) {
	for _, userID := range userIDs {
		_ = h.Push(userID, event, data)
	}
}

// Broadcast delivers an event to every connected client.
func (h *Hub) Broadcast(event string, data interface{}) {
	payload, err := json.Marshal(Event{Type: event, Data: data})
	if err != nil {
		log.Printf("Error marshaling broadcast %s: %v", event, err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms))
	for _, room := range h.rooms {
		for client := range room {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("Error broadcasting to user %d: %v", client.UserID, err)
			h.Unregister(client)
		}
	}
}

// MarkPong records a pong from the client; wired into the connection's pong
// handler by the websocket handler.
func (h *Hub) MarkPong(client *Client) {
	h.mu.Lock()
	client.lastPong = time.Now()
	h.mu.Unlock()
}

func (h *Hub) clientsOf(userID uint) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[userID]
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	return clients
}

// pingRoutine keeps one connection alive until it is unregistered.
func (h *Hub) pingRoutine(client *Client) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Ping routine recovered from panic for user %d: %v", client.UserID, r)
		}
	}()

	for {
		select {
		case <-client.closeChan:
			return
		case <-client.pingTicker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("Ping failed for user %d: %v", client.UserID, err)
				h.Unregister(client)
				return
			}
		}
	}
}

// connectionHealthChecker drops connections that stopped answering pings.
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.RLock()
		dead := make([]*Client, 0)
		now := time.Now()
		for _, room := range h.rooms {
			for client := range room {
				if now.Sub(client.lastPong) > h.pongTimeout {
					dead = append(dead, client)
				}
			}
		}
		h.mu.RUnlock()

		for _, client := range dead {
			log.Printf("Removing dead connection for user %d (no pong received)", client.UserID)
			h.Unregister(client)
		}
	}
}
