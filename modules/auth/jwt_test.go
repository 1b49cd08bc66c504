package auth

import (
	"testing"
	"time"
)

func testTokenConfig() TokenConfig {
	return TokenConfig{
		Secret:     "test-secret-key",
		Issuer:     "test-issuer",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

func TestTokenIssuer_IssuePair(t *testing.T) {
	issuer := NewTokenIssuer(testTokenConfig())

	pair, err := issuer.IssuePair("user-123", "alice", true)
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}
	if pair.TokenType != "Bearer" || pair.ExpiresIn != 900 {
		t.Errorf("pair = %+v, want Bearer expiring in 900s", pair)
	}

	access, err := issuer.Parse(pair.AccessToken, KindAccess)
	if err != nil {
		t.Fatalf("Parse(access) error = %v", err)
	}
	if access.UserID() != "user-123" || access.Username != "alice" || !access.Admin {
		t.Errorf("access claims = %+v", access)
	}
	if access.Issuer != "test-issuer" {
		t.Errorf("Issuer = %q, want test-issuer", access.Issuer)
	}

	refresh, err := issuer.Parse(pair.RefreshToken, KindRefresh)
	if err != nil {
		t.Fatalf("Parse(refresh) error = %v", err)
	}
	if refresh.ID == "" || refresh.ID == access.ID {
		t.Errorf("token ids access=%q refresh=%q, want distinct non-empty", access.ID, refresh.ID)
	}
}

func TestTokenIssuer_KindMismatch(t *testing.T) {
	issuer := NewTokenIssuer(testTokenConfig())
	pair, err := issuer.IssuePair("user-123", "alice", false)
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	if _, err := issuer.Parse(pair.AccessToken, KindRefresh); err != ErrInvalidToken {
		t.Errorf("Parse(access as refresh) error = %v, want ErrInvalidToken", err)
	}
	if _, err := issuer.Parse(pair.RefreshToken, KindAccess); err != ErrInvalidToken {
		t.Errorf("Parse(refresh as access) error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuer_Rejects(t *testing.T) {
	pair, err := NewTokenIssuer(testTokenConfig()).IssuePair("user-123", "alice", false)
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	otherSecret := testTokenConfig()
	otherSecret.Secret = "another-secret"
	otherIssuer := testTokenConfig()
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name   string
		config TokenConfig
		token  string
	}{
		{name: "empty", config: testTokenConfig(), token: ""},
		{name: "garbage", config: testTokenConfig(), token: "not.a.valid.token"},
		{name: "malformed", config: testTokenConfig(), token: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid"},
		{name: "wrong secret", config: otherSecret, token: pair.AccessToken},
		{name: "wrong issuer", config: otherIssuer, token: pair.AccessToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTokenIssuer(tt.config).Parse(tt.token, KindAccess); err != ErrInvalidToken {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testTokenConfig())
	pair, err := issuer.IssuePair("user-123", "alice", false)
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	issuer.now = func() time.Time { return time.Now().Add(time.Hour) }

	if _, err := issuer.Parse(pair.AccessToken, KindAccess); err != ErrExpiredToken {
		t.Errorf("Parse(access) error = %v, want ErrExpiredToken", err)
	}
	if _, err := issuer.Parse(pair.RefreshToken, KindRefresh); err != nil {
		t.Errorf("Parse(refresh) error = %v, want nil", err)
	}
}
