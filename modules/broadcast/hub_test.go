package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/example/chat-server/events"
	"github.com/gofiber/contrib/websocket"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Envelope
	closed bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if messageType != websocket.TextMessage {
		return nil
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	c.frames = append(c.frames, env)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.frames))
	for i, f := range c.frames {
		out[i] = f.Type
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// flush waits until every action queued so far has run.
func flush(h *Hub) {
	ch := make(chan struct{})
	h.do(func() { close(ch) })
	<-ch
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		h.Wait()
	})
	return h
}

func equalTypes(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestHub_RoomBroadcastReachesSubscribersOnly(t *testing.T) {
	h := startHub(t)
	aliceConn, bobConn := &fakeConn{}, &fakeConn{}
	alice := h.Register(aliceConn, "alice-id", "alice")
	h.Register(bobConn, "bob-id", "bob")
	h.Subscribe(alice, "room-1")

	h.BroadcastRoom("room-1", TypeMessage, map[string]string{"content": "hi"})
	flush(h)

	waitFor(t, "alice frame", func() bool { return len(aliceConn.types()) == 1 })
	if got := bobConn.types(); len(got) != 0 {
		t.Errorf("bob received %v, want nothing", got)
	}
	if h.RoomClientCount("room-1") != 1 {
		t.Errorf("RoomClientCount = %d, want 1", h.RoomClientCount("room-1"))
	}
}

func TestHub_SendToUsersReachesEveryConnection(t *testing.T) {
	h := startHub(t)
	tab1, tab2, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	h.Register(tab1, "alice-id", "alice")
	h.Register(tab2, "alice-id", "alice")
	h.Register(other, "bob-id", "bob")

	h.SendToUsers(TypeDM, map[string]string{"content": "psst"}, "alice-id")
	flush(h)

	waitFor(t, "both tabs", func() bool {
		return len(tab1.types()) == 1 && len(tab2.types()) == 1
	})
	if len(other.types()) != 0 {
		t.Errorf("bob received %v", other.types())
	}
	if h.ClientCount() != 3 || h.UserCount() != 2 {
		t.Errorf("ClientCount = %d, UserCount = %d", h.ClientCount(), h.UserCount())
	}
}

func TestModule_KickNotifiesThenUnsubscribes(t *testing.T) {
	m := NewModule()
	h := m.hub
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	defer func() {
		cancel()
		h.Wait()
	}()

	conn := &fakeConn{}
	h.Register(conn, "bob-id", "bob")

	event := events.MemberEvent{RoomID: "room-1", UserID: "bob-id", Username: "bob"}
	if err := m.handleMemberJoined(ctx, event, nil); err != nil {
		t.Fatalf("handleMemberJoined() error = %v", err)
	}
	if err := m.handleMemberKicked(ctx, event, nil); err != nil {
		t.Fatalf("handleMemberKicked() error = %v", err)
	}
	if err := m.handleMessageSent(ctx, events.MessageEvent{RoomID: "room-1", Content: "after"}, nil); err != nil {
		t.Fatalf("handleMessageSent() error = %v", err)
	}
	flush(h)

	waitFor(t, "join and kick frames", func() bool { return len(conn.types()) >= 2 })
	time.Sleep(20 * time.Millisecond)
	if got := conn.types(); !equalTypes(got, TypeMemberJoined, TypeMemberKicked) {
		t.Errorf("frames = %v, want [member_joined member_kicked]", got)
	}
	if h.RoomClientCount("room-1") != 0 {
		t.Errorf("RoomClientCount = %d, want 0", h.RoomClientCount("room-1"))
	}
}

func TestModule_BanDisconnectsUser(t *testing.T) {
	m := NewModule()
	h := m.hub
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	defer func() {
		cancel()
		h.Wait()
	}()

	banned, bystander := &fakeConn{}, &fakeConn{}
	h.Register(banned, "mallory-id", "mallory")
	h.Register(bystander, "alice-id", "alice")

	event := events.UserBannedEvent{UserID: "mallory-id", Username: "mallory", Banned: true}
	if err := m.handleUserBanned(ctx, event, nil); err != nil {
		t.Fatalf("handleUserBanned() error = %v", err)
	}
	flush(h)

	waitFor(t, "banned connection closed", banned.isClosed)
	if got := banned.types(); !equalTypes(got, TypeUserBanned) {
		t.Errorf("banned user frames = %v, want [user_banned]", got)
	}
	waitFor(t, "bystander frame", func() bool { return len(bystander.types()) == 1 })
	if h.IsOnline("mallory-id") {
		t.Error("banned user still online")
	}
	if !h.IsOnline("alice-id") {
		t.Error("bystander went offline")
	}
}

func TestModule_RoomDeletedDropsSubscriptions(t *testing.T) {
	m := NewModule()
	h := m.hub
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	defer func() {
		cancel()
		h.Wait()
	}()

	conn := &fakeConn{}
	c := h.Register(conn, "alice-id", "alice")
	h.Subscribe(c, "room-1")

	if err := m.handleRoomDeleted(ctx, events.RoomDeletedEvent{RoomID: "room-1", RoomName: "lobby"}, nil); err != nil {
		t.Fatalf("handleRoomDeleted() error = %v", err)
	}
	flush(h)

	waitFor(t, "room_deleted frame", func() bool { return len(conn.types()) == 1 })
	if h.RoomClientCount("room-1") != 0 {
		t.Errorf("RoomClientCount = %d, want 0", h.RoomClientCount("room-1"))
	}
}

func TestHub_UnregisterAndShutdown(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	first, second := &fakeConn{}, &fakeConn{}
	c := h.Register(first, "alice-id", "alice")
	h.Register(second, "bob-id", "bob")
	h.Unregister(c)
	flush(h)

	if h.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", h.ClientCount())
	}
	waitFor(t, "unregistered connection closed", first.isClosed)
	if c.Send(TypeMessage, "late") {
		t.Error("Send() on a closed client reported success")
	}

	cancel()
	h.Wait()
	waitFor(t, "remaining connection closed", second.isClosed)
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount after shutdown = %d", h.ClientCount())
	}
}

func TestModule_Health(t *testing.T) {
	m := NewModule()
	status := m.Health(context.Background())
	if !status.Healthy {
		t.Error("Health() not healthy")
	}
	if status.Details["connected_clients"] != 0 {
		t.Errorf("connected_clients = %v", status.Details["connected_clients"])
	}
}
