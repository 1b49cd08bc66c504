package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	// WriteWait bounds a single socket write.
	WriteWait = 10 * time.Second
	// PongWait is how long a connection may stay silent before it is dropped.
	PongWait = 60 * time.Second
	// PingPeriod must be shorter than PongWait.
	PingPeriod = (PongWait * 9) / 10

	sendBufferSize   = 64
	actionBufferSize = 256
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Envelope is the frame every server push is wrapped in.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client is one websocket connection of an authenticated user.
type Client struct {
	ID       string
	UserID   string
	Username string

	conn      Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	rooms     map[string]struct{} // owned by the hub loop
}

// Send queues a frame for this client. It reports false when the client is
// closed or too slow to keep up.
func (c *Client) Send(msgType string, payload any) bool {
	data, err := json.Marshal(Envelope{Type: msgType, Payload: payload})
	if err != nil {
		log.Printf("[hub] Failed to marshal %s frame: %v", msgType, err)
		return false
	}
	return c.enqueue(data)
}

// SendError queues an error frame for this client.
func (c *Client) SendError(message string) bool {
	data, err := json.Marshal(Envelope{Type: "error", Error: message})
	if err != nil {
		return false
	}
	return c.enqueue(data)
}

// Done is closed once the client has been disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump is the only writer to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.drain()
			_ = c.write(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// drain flushes frames queued before the client was closed.
func (c *Client) drain() {
	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return c.conn.WriteMessage(messageType, data)
}

// delivery selects recipients for one frame.
type delivery struct {
	all     bool
	roomID  string
	userIDs []string
	data    []byte
}

// Hub tracks connected clients and routes frames to them. All state changes
// run on the Run loop, so deliveries and subscription changes apply in the
// order they were requested.
type Hub struct {
	clients map[string]*Client            // clientID -> client
	users   map[string]map[string]*Client // userID -> clientID -> client
	rooms   map[string]map[string]*Client // roomID -> clientID -> client
	actions chan func()
	done    chan struct{}
	mu      sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		users:   make(map[string]map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		actions: make(chan func(), actionBufferSize),
		done:    make(chan struct{}),
	}
}

// Run processes hub actions until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case fn := <-h.actions:
			fn()
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) do(fn func()) {
	select {
	case h.actions <- fn:
	case <-h.done:
	}
}

// Register adds a connection for the given user and starts its write pump.
func (h *Hub) Register(conn Conn, userID, username string) *Client {
	client := &Client{
		ID:       uuid.New().String(),
		UserID:   userID,
		Username: username,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		rooms:    make(map[string]struct{}),
	}
	go client.writePump()

	h.do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		h.clients[client.ID] = client
		if h.users[userID] == nil {
			h.users[userID] = make(map[string]*Client)
		}
		h.users[userID][client.ID] = client
		log.Printf("[hub] Client %s (%s) registered", client.ID, username)
	})
	return client
}

// Unregister removes a client and closes its connection.
func (h *Hub) Unregister(client *Client) {
	client.close()
	h.do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.removeLocked(client)
	})
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	if byUser := h.users[client.UserID]; byUser != nil {
		delete(byUser, client.ID)
		if len(byUser) == 0 {
			delete(h.users, client.UserID)
		}
	}
	for roomID := range client.rooms {
		h.leaveLocked(client, roomID)
	}
	log.Printf("[hub] Client %s (%s) unregistered", client.ID, client.Username)
}

// Subscribe starts delivering room frames to the client.
func (h *Hub) Subscribe(client *Client, roomID string) {
	h.do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.clients[client.ID]; ok {
			h.joinLocked(client, roomID)
		}
	})
}

// Unsubscribe stops delivering room frames to the client.
func (h *Hub) Unsubscribe(client *Client, roomID string) {
	h.do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.leaveLocked(client, roomID)
	})
}

// SubscribeUser subscribes every connection of the user to the room.
func (h *Hub) SubscribeUser(userID, roomID string) {
	h.do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, client := range h.users[userID] {
			h.joinLocked(client, roomID)
		}
	})
}

// UnsubscribeUser removes every connection of the user from the room.
func (h *Hub) UnsubscribeUser(userID, roomID string) {
	h.do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, client := range h.users[userID] {
			h.leaveLocked(client, roomID)
		}
	})
}

// DropRoom removes all subscriptions to the room.
func (h *Hub) DropRoom(roomID string) {
	h.do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, client := range h.rooms[roomID] {
			delete(client.rooms, roomID)
		}
		delete(h.rooms, roomID)
	})
}

// DisconnectUser closes every connection of the user after frames already
// queued for them are flushed.
func (h *Hub) DisconnectUser(userID string) {
	h.do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, client := range h.users[userID] {
			client.close()
			h.removeLocked(client)
		}
	})
}

func (h *Hub) joinLocked(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	client.rooms[roomID] = struct{}{}
}

func (h *Hub) leaveLocked(client *Client, roomID string) {
	delete(client.rooms, roomID)
	if subs := h.rooms[roomID]; subs != nil {
		delete(subs, client.ID)
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// BroadcastRoom sends a frame to the room's subscribers and to any extra users.
func (h *Hub) BroadcastRoom(roomID, msgType string, payload any, extraUserIDs ...string) {
	h.deliver(msgType, payload, delivery{roomID: roomID, userIDs: extraUserIDs})
}

// SendToUsers sends a frame to every connection of the given users.
func (h *Hub) SendToUsers(msgType string, payload any, userIDs ...string) {
	h.deliver(msgType, payload, delivery{userIDs: userIDs})
}

// BroadcastAll sends a frame to every connected client.
func (h *Hub) BroadcastAll(msgType string, payload any) {
	h.deliver(msgType, payload, delivery{all: true})
}

func (h *Hub) deliver(msgType string, payload any, d delivery) {
	data, err := json.Marshal(Envelope{Type: msgType, Payload: payload})
	if err != nil {
		log.Printf("[hub] Failed to marshal %s frame: %v", msgType, err)
		return
	}
	d.data = data
	h.do(func() { h.handleDelivery(d) })
}

func (h *Hub) handleDelivery(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets := make(map[string]*Client)
	if d.all {
		for id, client := range h.clients {
			targets[id] = client
		}
	}
	if d.roomID != "" {
		for id, client := range h.rooms[d.roomID] {
			targets[id] = client
		}
	}
	for _, userID := range d.userIDs {
		for id, client := range h.users[userID] {
			targets[id] = client
		}
	}

	for _, client := range targets {
		if !client.enqueue(d.data) {
			log.Printf("[hub] Dropping slow client %s (%s)", client.ID, client.Username)
			client.close()
			h.removeLocked(client)
		}
	}
}

// closeAllClients closes all connected client connections.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.close()
	}
	h.clients = make(map[string]*Client)
	h.users = make(map[string]map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UserCount returns the number of users with at least one connection.
func (h *Hub) UserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users)
}

// RoomClientCount returns the number of clients subscribed to a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// IsOnline reports whether the user has a live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}
