package api

import (
	"context"
	"encoding/json"
	"log"
	"time"

	domain "github.com/example/chat-server/domain/user"
	"github.com/example/chat-server/modules/broadcast"
	"github.com/example/chat-server/modules/chat"
	"github.com/example/chat-server/modules/ratelimit"
	"github.com/gofiber/contrib/websocket"
	"golang.org/x/time/rate"
)

// Per-connection flood control, applied before the shared Redis limiter.
const (
	messagesPerSecond = 5
	burstSize         = 10
	maxFrameSize      = 16 * 1024
)

// Client frame types.
const (
	wsSubscribe   = "subscribe"
	wsUnsubscribe = "unsubscribe"
	wsMessage     = "message"
	wsDM          = "dm"
	wsDMHistory   = "dm_history"
	wsEdit        = "edit"
	wsDelete      = "delete"
	wsPing        = "ping"
)

// WSRequest is a frame sent by the client.
type WSRequest struct {
	Type    string    `json:"type"`
	Payload WSPayload `json:"payload"`
}

// WSPayload holds the fields any client frame may carry.
type WSPayload struct {
	RoomID    string `json:"room_id,omitempty"`
	To        string `json:"to,omitempty"`
	Content   string `json:"content,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Before    string `json:"before,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// WSHandler serves the realtime socket.
type WSHandler struct {
	hub     *broadcast.Hub
	chat    chat.ChatPort
	limiter *ratelimit.Middleware
}

// NewWSHandler creates a WSHandler. limiter may be nil.
func NewWSHandler(hub *broadcast.Hub, chatPort chat.ChatPort, limiter *ratelimit.Middleware) *WSHandler {
	return &WSHandler{
		hub:     hub,
		chat:    chatPort,
		limiter: limiter,
	}
}

// session is the state of one socket.
type session struct {
	client *broadcast.Client
	claims domain.Claims
	bucket *rate.Limiter
}

// Handle runs the read loop of one authenticated connection.
func (w *WSHandler) Handle(conn *websocket.Conn) {
	claims, ok := conn.Locals(UserContextKey).(*domain.Claims)
	if !ok || claims == nil {
		_ = conn.Close()
		return
	}

	client := w.hub.Register(conn, claims.UserID, claims.Username)
	defer w.hub.Unregister(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &session{
		client: client,
		claims: *claims,
		bucket: rate.NewLimiter(rate.Limit(messagesPerSecond), burstSize),
	}

	rooms, err := w.chat.ListMemberships(ctx, claims.UserID)
	if err != nil {
		log.Printf("[ws] Failed to load memberships for %s: %v", claims.Username, err)
	}
	for _, roomID := range rooms {
		w.hub.Subscribe(client, roomID)
	}
	client.Send("ready", map[string]any{"user": claims, "rooms": rooms})

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(broadcast.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(broadcast.PongWait))
	})

	log.Printf("[ws] %s connected (%s)", claims.Username, client.ID)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] Read error for %s: %v", claims.Username, err)
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(broadcast.PongWait))

		var req WSRequest
		if err := json.Unmarshal(data, &req); err != nil {
			client.SendError("Invalid message format")
			continue
		}
		w.dispatch(ctx, s, req)
	}
	log.Printf("[ws] %s disconnected (%s)", claims.Username, client.ID)
}

func (w *WSHandler) dispatch(ctx context.Context, s *session, req WSRequest) {
	p := req.Payload
	switch req.Type {
	case wsPing:
		s.client.Send("pong", nil)

	case wsSubscribe:
		messages, err := w.chat.RoomHistory(ctx, s.claims, p.RoomID, p.Before, p.Limit)
		if err != nil {
			w.fail(s, err)
			return
		}
		w.hub.Subscribe(s.client, p.RoomID)
		s.client.Send("history", map[string]any{
			"room_id": p.RoomID,
			"page":    newHistoryResponse(messages, p.Limit),
		})

	case wsUnsubscribe:
		w.hub.Unsubscribe(s.client, p.RoomID)

	case wsDMHistory:
		messages, err := w.chat.DMHistory(ctx, s.claims, p.To, p.Before, p.Limit)
		if err != nil {
			w.fail(s, err)
			return
		}
		s.client.Send("history", map[string]any{
			"peer": p.To,
			"page": newHistoryResponse(messages, p.Limit),
		})

	case wsMessage:
		if !w.allow(ctx, s) {
			return
		}
		if _, err := w.chat.SendMessage(ctx, s.claims, p.RoomID, p.Content); err != nil {
			w.fail(s, err)
		}

	case wsDM:
		if !w.allow(ctx, s) {
			return
		}
		if _, err := w.chat.SendDM(ctx, s.claims, p.To, p.Content); err != nil {
			w.fail(s, err)
		}

	case wsEdit:
		if !w.allow(ctx, s) {
			return
		}
		if _, err := w.chat.EditMessage(ctx, s.claims, p.MessageID, p.Content); err != nil {
			w.fail(s, err)
		}

	case wsDelete:
		if !w.allow(ctx, s) {
			return
		}
		if _, err := w.chat.DeleteMessage(ctx, s.claims, p.MessageID); err != nil {
			w.fail(s, err)
		}

	default:
		s.client.SendError("Unknown message type: " + req.Type)
	}
}

// allow applies the connection's token bucket, then the user's shared budget.
func (w *WSHandler) allow(ctx context.Context, s *session) bool {
	if !s.bucket.Allow() {
		s.client.SendError("Rate limit exceeded, please slow down")
		return false
	}
	if w.limiter != nil {
		if ok, _ := w.limiter.AllowUser(ctx, s.claims.UserID); !ok {
			s.client.SendError("Rate limit exceeded, please slow down")
			return false
		}
	}
	return true
}

func (w *WSHandler) fail(s *session, err error) {
	status, _, message := classify(err)
	if status >= 500 {
		log.Printf("[ws] Request from %s failed: %v", s.claims.Username, err)
	}
	s.client.SendError(message)
}
