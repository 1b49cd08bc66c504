package chat

import "testing"

func TestThreadKey(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{name: "ordered", a: "alice", b: "bob", want: "alice|bob"},
		{name: "reversed", a: "bob", b: "alice", want: "alice|bob"},
		{name: "same user", a: "carol", b: "carol", want: "carol|carol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ThreadKey(tt.a, tt.b); got != tt.want {
				t.Errorf("ThreadKey(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestThreadPeer(t *testing.T) {
	key := ThreadKey("u-2", "u-1")

	if got := ThreadPeer(key, "u-1"); got != "u-2" {
		t.Errorf("ThreadPeer(%q, u-1) = %q, want u-2", key, got)
	}
	if got := ThreadPeer(key, "u-2"); got != "u-1" {
		t.Errorf("ThreadPeer(%q, u-2) = %q, want u-1", key, got)
	}
	if got := ThreadPeer("malformed", "u-1"); got != "" {
		t.Errorf("ThreadPeer(malformed) = %q, want empty", got)
	}
}

func TestRoomHasPassword(t *testing.T) {
	if (&Room{}).HasPassword() {
		t.Error("HasPassword() = true for room without hash")
	}
	if !(&Room{PasswordHash: "$2a$10$x"}).HasPassword() {
		t.Error("HasPassword() = false for room with hash")
	}
}
