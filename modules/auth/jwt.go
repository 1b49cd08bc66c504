package auth

import (
	"errors"
	"time"

	domain "github.com/example/chat-server/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned for malformed, forged or wrong-kind tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// TokenConfig configures token signing.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// DefaultTokenConfig returns short-lived access tokens and week-long refresh tokens.
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		Secret:     "change-me-in-production",
		Issuer:     "chat-server",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

// SessionClaims is the payload of both token kinds. The user ID is the subject
// and the token ID is what refresh-token revocation keys on.
type SessionClaims struct {
	Username string    `json:"username"`
	Admin    bool      `json:"admin,omitempty"`
	Kind     TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *SessionClaims) UserID() string {
	return c.Subject
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	cfg    TokenConfig
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	t := &TokenIssuer{cfg: cfg, now: time.Now}
	t.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	return t
}

// IssuePair signs a fresh access and refresh token for the user.
func (t *TokenIssuer) IssuePair(userID, username string, admin bool) (*domain.TokenPair, error) {
	access, err := t.sign(userID, username, admin, KindAccess, t.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := t.sign(userID, username, admin, KindRefresh, t.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(t.cfg.AccessTTL / time.Second),
		TokenType:    "Bearer",
	}, nil
}

// Parse verifies raw and checks that it is a token of the given kind.
func (t *TokenIssuer) Parse(raw string, kind TokenKind) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if _, err := t.parser.ParseWithClaims(raw, claims, t.key); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind || claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *TokenIssuer) sign(userID, username string, admin bool, kind TokenKind, ttl time.Duration) (string, error) {
	now := t.now()
	claims := SessionClaims{
		Username: username,
		Admin:    admin,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.Secret))
}

func (t *TokenIssuer) key(*jwt.Token) (any, error) {
	return []byte(t.cfg.Secret), nil
}
