package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/example/chat-server/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&domain.User{}, &domain.RevokedToken{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func setupTestService(t *testing.T, admins ...string) (*AuthService, *UserRepository) {
	t.Helper()
	repo := NewUserRepository(setupTestDB(t))
	svc := NewAuthService(repo, NewPasswordHasherWithCost(bcrypt.MinCost), NewTokenIssuer(testTokenConfig()), admins)
	return svc, repo
}

func mustSignup(t *testing.T, svc *AuthService, username string) (*domain.User, *domain.TokenPair) {
	t.Helper()
	user, tokens, err := svc.Signup(context.Background(), username, "password123")
	if err != nil {
		t.Fatalf("Signup(%q) error = %v", username, err)
	}
	return user, tokens
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{name: "simple", username: "alice"},
		{name: "punctuation", username: "a.b_c-d"},
		{name: "too short", username: "ab", wantErr: true},
		{name: "too long", username: "abcdefghijklmnopqrstuvwxyz0123456", wantErr: true},
		{name: "space", username: "al ice", wantErr: true},
		{name: "symbol", username: "alice!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.username, err, tt.wantErr)
			}
		})
	}
}

func TestSignup(t *testing.T) {
	svc, _ := setupTestService(t, "Root")
	ctx := context.Background()

	user, tokens := mustSignup(t, svc, "Alice")
	if user.Username != "Alice" {
		t.Errorf("Username = %q, want Alice", user.Username)
	}
	if user.PasswordHash == "password123" {
		t.Error("password stored in plain text")
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" || tokens.TokenType != "Bearer" {
		t.Errorf("unexpected token pair %+v", tokens)
	}
	if user.Admin {
		t.Error("regular user marked admin")
	}

	if _, _, err := svc.Signup(ctx, "alice", "password123"); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate signup error = %v, want ErrUserExists", err)
	}
	if _, _, err := svc.Signup(ctx, "x", "password123"); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("short username error = %v, want ErrInvalidUsername", err)
	}
	if _, _, err := svc.Signup(ctx, "bob", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password error = %v, want ErrWeakPassword", err)
	}

	root, _ := mustSignup(t, svc, "root")
	if !root.Admin {
		t.Error("configured admin not marked admin")
	}
}

func TestLogin(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()
	user, _ := mustSignup(t, svc, "alice")

	if _, tokens, err := svc.Login(ctx, "ALICE", "password123"); err != nil || tokens == nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", err)
	}

	if err := repo.UpdateFields(ctx, user.ID, map[string]any{"banned": true}); err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "password123"); !errors.Is(err, ErrUserBanned) {
		t.Errorf("banned login error = %v, want ErrUserBanned", err)
	}
}

func TestRefreshTokens_Rotation(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	_, tokens := mustSignup(t, svc, "alice")

	next, err := svc.RefreshTokens(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokens() error = %v", err)
	}
	if next.RefreshToken == tokens.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	if _, err := svc.RefreshTokens(ctx, tokens.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("reused refresh token error = %v, want ErrTokenRevoked", err)
	}
	if _, err := svc.RefreshTokens(ctx, next.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token as refresh error = %v, want ErrInvalidToken", err)
	}
}

func TestRevokeToken_ConsumesOnce(t *testing.T) {
	_, repo := setupTestService(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	first, err := repo.RevokeToken(ctx, "jti-1", "u1", expires)
	if err != nil {
		t.Fatalf("RevokeToken() error = %v", err)
	}
	second, err := repo.RevokeToken(ctx, "jti-1", "u1", expires)
	if err != nil {
		t.Fatalf("second RevokeToken() error = %v", err)
	}
	if !first || second {
		t.Errorf("RevokeToken() = %v then %v, want true then false", first, second)
	}
}

func TestRefreshTokens_ConcurrentReuse(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	_, tokens := mustSignup(t, svc, "alice")

	const callers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		revoked   int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RefreshTokens(ctx, tokens.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrTokenRevoked):
				revoked++
			default:
				t.Errorf("RefreshTokens() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || revoked != callers-1 {
		t.Errorf("succeeded = %d, revoked = %d, want 1 and %d", succeeded, revoked, callers-1)
	}
}

func TestLogout(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	_, tokens := mustSignup(t, svc, "alice")

	if err := svc.Logout(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if err := svc.Logout(ctx, tokens.RefreshToken); err != nil {
		t.Errorf("second Logout() error = %v, want nil", err)
	}
	if _, err := svc.RefreshTokens(ctx, tokens.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("refresh after logout error = %v, want ErrTokenRevoked", err)
	}
	if err := svc.Logout(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Logout(garbage) error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateToken(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()
	user, tokens := mustSignup(t, svc, "alice")

	claims, err := svc.ValidateToken(ctx, tokens.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != user.ID || claims.Username != "alice" {
		t.Errorf("claims = %+v", claims)
	}

	if err := repo.UpdateFields(ctx, user.ID, map[string]any{"banned": true}); err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	if _, err := svc.ValidateToken(ctx, tokens.AccessToken); !errors.Is(err, ErrUserBanned) {
		t.Errorf("banned ValidateToken() error = %v, want ErrUserBanned", err)
	}
}

func TestSetBanned(t *testing.T) {
	svc, _ := setupTestService(t, "root")
	ctx := context.Background()
	root, _ := mustSignup(t, svc, "root")
	alice, _ := mustSignup(t, svc, "alice")
	mustSignup(t, svc, "bob")

	if _, err := svc.SetBanned(ctx, alice.ID, "bob", true); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("non-admin ban error = %v, want ErrNotAdmin", err)
	}
	if _, err := svc.SetBanned(ctx, root.ID, "root", true); !errors.Is(err, ErrCannotBanSelf) {
		t.Errorf("self ban error = %v, want ErrCannotBanSelf", err)
	}
	if _, err := svc.SetBanned(ctx, root.ID, "ghost", true); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown target error = %v, want ErrUserNotFound", err)
	}

	target, err := svc.SetBanned(ctx, root.ID, "Bob", true)
	if err != nil {
		t.Fatalf("SetBanned() error = %v", err)
	}
	if !target.Banned {
		t.Error("target not banned")
	}
	if _, _, err := svc.Login(ctx, "bob", "password123"); !errors.Is(err, ErrUserBanned) {
		t.Errorf("banned login error = %v, want ErrUserBanned", err)
	}

	if _, err := svc.SetBanned(ctx, root.ID, "bob", false); err != nil {
		t.Fatalf("unban error = %v", err)
	}
	if _, _, err := svc.Login(ctx, "bob", "password123"); err != nil {
		t.Errorf("login after unban error = %v", err)
	}
}

func TestSearchUsers(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()
	alice, _ := mustSignup(t, svc, "alice")
	mustSignup(t, svc, "alicia")
	banned, _ := mustSignup(t, svc, "alien")
	mustSignup(t, svc, "bob")
	mustSignup(t, svc, "al_x")

	if err := repo.UpdateFields(ctx, banned.ID, map[string]any{"banned": true}); err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}

	users, err := svc.SearchUsers(ctx, "ALI", alice.ID)
	if err != nil {
		t.Fatalf("SearchUsers() error = %v", err)
	}
	if len(users) != 1 || users[0].Username != "alicia" {
		t.Errorf("SearchUsers() = %+v, want only alicia", users)
	}

	users, err = svc.SearchUsers(ctx, "_", alice.ID)
	if err != nil {
		t.Fatalf("SearchUsers() error = %v", err)
	}
	if len(users) != 1 || users[0].Username != "al_x" {
		t.Errorf("underscore treated as wildcard: %+v", users)
	}

	users, err = svc.SearchUsers(ctx, "   ", alice.ID)
	if err != nil || len(users) != 0 {
		t.Errorf("blank query = %v, %v", users, err)
	}
}

func TestUpdateProfileAndAvatar(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	alice, _ := mustSignup(t, svc, "alice")

	long := make([]rune, MaxBioLength+1)
	for i := range long {
		long[i] = 'é'
	}
	if _, err := svc.UpdateProfile(ctx, alice.ID, string(long)); !errors.Is(err, ErrBioTooLong) {
		t.Errorf("long bio error = %v, want ErrBioTooLong", err)
	}

	user, err := svc.UpdateProfile(ctx, alice.ID, "  hello there  ")
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if user.Bio != "hello there" {
		t.Errorf("Bio = %q", user.Bio)
	}

	prev, _, err := svc.SetAvatar(ctx, alice.ID, "/api/avatars/one.webp")
	if err != nil {
		t.Fatalf("SetAvatar() error = %v", err)
	}
	if prev != "" {
		t.Errorf("first previous URL = %q, want empty", prev)
	}
	prev, user, err = svc.SetAvatar(ctx, alice.ID, "/api/avatars/two.webp")
	if err != nil {
		t.Fatalf("SetAvatar() error = %v", err)
	}
	if prev != "/api/avatars/one.webp" || user.AvatarURL != "/api/avatars/two.webp" {
		t.Errorf("SetAvatar() = %q, %q", prev, user.AvatarURL)
	}

	if _, _, err := svc.SetAvatar(ctx, "missing", "/x"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("SetAvatar(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestGetUsers(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	alice, _ := mustSignup(t, svc, "alice")
	bob, _ := mustSignup(t, svc, "bob")

	users, err := svc.GetUsers(ctx, []string{alice.ID, bob.ID, "missing"})
	if err != nil {
		t.Fatalf("GetUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("GetUsers() returned %d users, want 2", len(users))
	}
}

func TestPurgeExpiredRevocations(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if _, err := repo.RevokeToken(ctx, "old", "u1", now.Add(-time.Hour)); err != nil {
		t.Fatalf("RevokeToken() error = %v", err)
	}
	if _, err := repo.RevokeToken(ctx, "fresh", "u1", now.Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken() error = %v", err)
	}

	n, err := svc.PurgeExpiredRevocations(ctx)
	if err != nil {
		t.Fatalf("PurgeExpiredRevocations() error = %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d rows, want 1", n)
	}
	if revoked, _ := repo.IsRevoked(ctx, "fresh"); !revoked {
		t.Error("unexpired revocation was purged")
	}
	if revoked, _ := repo.IsRevoked(ctx, "old"); revoked {
		t.Error("expired revocation was kept")
	}
}
