package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	domain "github.com/example/chat-server/domain/user"
	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidUsername is returned when the username has the wrong shape.
	ErrInvalidUsername = errors.New("username must be 3-32 characters of letters, digits, '.', '_' or '-'")
	// ErrWeakPassword is returned when password is too weak.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
	// ErrUserBanned is returned when a banned account tries to authenticate.
	ErrUserBanned = errors.New("account is banned")
	// ErrBioTooLong is returned when the bio exceeds MaxBioLength.
	ErrBioTooLong = errors.New("bio must be at most 280 characters")
	// ErrNotAdmin is returned when a non-admin calls an admin operation.
	ErrNotAdmin = errors.New("admin privileges required")
	// ErrCannotBanSelf is returned when an admin targets their own account.
	ErrCannotBanSelf = errors.New("cannot ban yourself")
	// ErrTokenRevoked is returned when a revoked refresh token is presented.
	ErrTokenRevoked = errors.New("token has been revoked")
)

const (
	// MaxBioLength is the maximum bio length in characters.
	MaxBioLength = 280
	// MaxSearchResults caps SearchUsers.
	MaxSearchResults = 20
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,32}$`)

// AuthService handles authentication business logic.
type AuthService struct {
	repo   *UserRepository
	hasher *PasswordHasher
	tokens *TokenIssuer
	admins map[string]bool
	now    func() time.Time
}

// NewAuthService creates a new AuthService. Usernames listed in adminUsers
// are treated as administrators.
func NewAuthService(repo *UserRepository, hasher *PasswordHasher, tokens *TokenIssuer, adminUsers []string) *AuthService {
	admins := make(map[string]bool, len(adminUsers))
	for _, name := range adminUsers {
		admins[domain.NormalizeUsername(name)] = true
	}
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		admins: admins,
		now:    time.Now,
	}
}

// ValidateUsername checks the username format.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidatePassword checks the password length bounds.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

// Signup creates a new account and logs it in.
func (s *AuthService) Signup(ctx context.Context, username, password string) (*domain.User, *domain.TokenPair, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	exists, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, nil, ErrUserExists
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	key := domain.NormalizeUsername(username)
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		UsernameKey:  key,
		PasswordHash: passwordHash,
		Admin:        s.admins[key],
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Login authenticates a user and returns tokens.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.hasher.Burn(password)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}
	if user.Banned {
		return nil, nil, ErrUserBanned
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// RefreshTokens exchanges a refresh token for a new pair. The presented token is
// revoked, and presenting it again yields ErrTokenRevoked.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, KindRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user.Banned {
		return nil, ErrUserBanned
	}

	// Revoking is the reuse check: only the caller whose insert lands may rotate.
	consumed, err := s.repo.RevokeToken(ctx, claims.ID, claims.UserID(), claims.ExpiresAt.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if !consumed {
		return nil, ErrTokenRevoked
	}

	return s.generateTokenPair(user)
}

// Logout revokes a refresh token. Expired tokens are already unusable and are accepted.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, KindRefresh)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil
		}
		return err
	}
	if _, err := s.repo.RevokeToken(ctx, claims.ID, claims.UserID(), claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// ValidateToken validates an access token and returns the current identity.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	claims, err := s.tokens.Parse(token, KindAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user.Banned {
		return nil, ErrUserBanned
	}

	return &domain.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Admin:    s.isAdmin(user),
	}, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Admin = s.isAdmin(user)
	return user, nil
}

// FindUser retrieves a user by username, ignoring case.
func (s *AuthService) FindUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	user.Admin = s.isAdmin(user)
	return user, nil
}

// GetUsers retrieves the users that exist among ids.
func (s *AuthService) GetUsers(ctx context.Context, ids []string) ([]domain.User, error) {
	users, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for i := range users {
		users[i].Admin = s.isAdmin(&users[i])
	}
	return users, nil
}

// SearchUsers finds active users by username substring, excluding the caller.
func (s *AuthService) SearchUsers(ctx context.Context, query, callerID string) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.User{}, nil
	}
	users, err := s.repo.Search(ctx, query, callerID, MaxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// UpdateProfile sets the user's bio.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, bio string) (*domain.User, error) {
	bio = strings.TrimSpace(bio)
	if len([]rune(bio)) > MaxBioLength {
		return nil, ErrBioTooLong
	}
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{"bio": bio, "updated_at": s.now()}); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userID)
}

// SetAvatar records a new avatar URL and returns the URL it replaced.
func (s *AuthService) SetAvatar(ctx context.Context, userID, avatarURL string) (string, *domain.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	previous := user.AvatarURL

	if err := s.repo.UpdateFields(ctx, userID, map[string]any{"avatar_url": avatarURL, "updated_at": s.now()}); err != nil {
		return "", nil, err
	}
	user.AvatarURL = avatarURL
	return previous, user, nil
}

// SetBanned bans or unbans the named account. Only administrators may call it.
func (s *AuthService) SetBanned(ctx context.Context, actorID, username string, banned bool) (*domain.User, error) {
	actor, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !s.isAdmin(actor) {
		return nil, ErrNotAdmin
	}

	target, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == actor.ID {
		return nil, ErrCannotBanSelf
	}

	if err := s.repo.UpdateFields(ctx, target.ID, map[string]any{"banned": banned, "updated_at": s.now()}); err != nil {
		return nil, err
	}
	target.Banned = banned
	return target, nil
}

// PurgeExpiredRevocations drops revocation rows for tokens that have expired.
func (s *AuthService) PurgeExpiredRevocations(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredRevocations(ctx, s.now())
}

func (s *AuthService) isAdmin(user *domain.User) bool {
	return user.Admin || s.admins[user.UsernameKey]
}

func (s *AuthService) generateTokenPair(user *domain.User) (*domain.TokenPair, error) {
	tokens, err := s.tokens.IssuePair(user.ID, user.Username, s.isAdmin(user))
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return tokens, nil
}
