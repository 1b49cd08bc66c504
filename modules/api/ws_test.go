package api

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	chatdomain "github.com/example/chat-server/domain/chat"
	domain "github.com/example/chat-server/domain/user"
	"github.com/example/chat-server/modules/broadcast"
	"golang.org/x/time/rate"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
}

type recordingConn struct {
	mu     sync.Mutex
	frames []frame
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil // control frames
	}
	c.mu.Lock()
	c.frames = append(c.frames, f)
	c.mu.Unlock()
	return nil
}

func (c *recordingConn) SetWriteDeadline(time.Time) error { return nil }
func (c *recordingConn) Close() error                     { return nil }

// next waits for the n-th frame written to the connection.
func (c *recordingConn) next(t *testing.T, n int) frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.frames) > n {
			f := c.frames[n]
			c.mu.Unlock()
			return f
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for frame %d", n)
	return frame{}
}

func newTestSession(t *testing.T, chatPort *mockChatPort) (*WSHandler, *session, *recordingConn, *broadcast.Hub) {
	t.Helper()
	hub := broadcast.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Wait()
	})

	conn := &recordingConn{}
	client := hub.Register(conn, "alice-id", "alice")
	s := &session{
		client: client,
		claims: domain.Claims{UserID: "alice-id", Username: "alice"},
		bucket: rate.NewLimiter(rate.Limit(messagesPerSecond), burstSize),
	}
	return NewWSHandler(hub, chatPort, nil), s, conn, hub
}

func TestDispatch_Ping(t *testing.T) {
	w, s, conn, _ := newTestSession(t, &mockChatPort{})

	w.dispatch(context.Background(), s, WSRequest{Type: wsPing})

	if f := conn.next(t, 0); f.Type != "pong" {
		t.Errorf("frame type = %q, want pong", f.Type)
	}
}

func TestDispatch_Subscribe(t *testing.T) {
	w, s, conn, hub := newTestSession(t, &mockChatPort{
		roomHistoryFunc: func(_ context.Context, _ domain.Claims, roomID, _ string, _ int) ([]chatdomain.Message, error) {
			if roomID != "r1" {
				return nil, errors.New("room-history request failed: you are not a member of this room")
			}
			return []chatdomain.Message{{ID: "m1", RoomID: "r1", Content: "hi"}}, nil
		},
	})

	w.dispatch(context.Background(), s, WSRequest{Type: wsSubscribe, Payload: WSPayload{RoomID: "r1"}})

	f := conn.next(t, 0)
	if f.Type != "history" {
		t.Fatalf("frame type = %q, want history", f.Type)
	}
	var payload struct {
		RoomID string          `json:"room_id"`
		Page   HistoryResponse `json:"page"`
	}
	if err := json.Unmarshal(f.Payload, &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if payload.RoomID != "r1" || len(payload.Page.Messages) != 1 {
		t.Errorf("history payload = %+v", payload)
	}
	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomClientCount("r1") != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := hub.RoomClientCount("r1"); got != 1 {
		t.Errorf("RoomClientCount = %d, want 1", got)
	}

	w.dispatch(context.Background(), s, WSRequest{Type: wsSubscribe, Payload: WSPayload{RoomID: "r2"}})

	f = conn.next(t, 1)
	if f.Type != "error" || f.Error != "you are not a member of this room" {
		t.Errorf("frame = %+v, want membership error", f)
	}
	if got := hub.RoomClientCount("r2"); got != 0 {
		t.Errorf("RoomClientCount(r2) = %d, want 0", got)
	}
}

func TestDispatch_MessageErrors(t *testing.T) {
	w, s, conn, _ := newTestSession(t, &mockChatPort{
		sendMessageFunc: func(_ context.Context, _ domain.Claims, _, content string) (*chatdomain.Message, error) {
			if content == "" {
				return nil, errors.New("send-message request failed: message cannot be empty")
			}
			return &chatdomain.Message{ID: "m1"}, nil
		},
	})

	w.dispatch(context.Background(), s, WSRequest{Type: wsMessage, Payload: WSPayload{RoomID: "r1", Content: "hello"}})
	w.dispatch(context.Background(), s, WSRequest{Type: wsMessage, Payload: WSPayload{RoomID: "r1"}})

	// A successful send produces no direct reply; the broadcast carries it.
	f := conn.next(t, 0)
	if f.Type != "error" || f.Error != "message cannot be empty" {
		t.Errorf("frame = %+v, want empty message error", f)
	}
}

func TestDispatch_RateLimited(t *testing.T) {
	var sent int
	w, s, conn, _ := newTestSession(t, &mockChatPort{
		sendDMFunc: func(context.Context, domain.Claims, string, string) (*chatdomain.Message, error) {
			sent++
			return &chatdomain.Message{ID: "m"}, nil
		},
	})
	s.bucket = rate.NewLimiter(rate.Limit(0.001), 2)

	for i := 0; i < 3; i++ {
		w.dispatch(context.Background(), s, WSRequest{Type: wsDM, Payload: WSPayload{To: "bob", Content: "hi"}})
	}

	if sent != 2 {
		t.Errorf("sent = %d, want 2", sent)
	}
	if f := conn.next(t, 0); f.Type != "error" || f.Error != "Rate limit exceeded, please slow down" {
		t.Errorf("frame = %+v, want rate limit error", f)
	}
}

func TestDispatch_UnknownType(t *testing.T) {
	w, s, conn, _ := newTestSession(t, &mockChatPort{})

	w.dispatch(context.Background(), s, WSRequest{Type: "shout"})

	if f := conn.next(t, 0); f.Type != "error" || f.Error != "Unknown message type: shout" {
		t.Errorf("frame = %+v", f)
	}
}
