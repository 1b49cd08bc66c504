package avatar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// ContentType is the type of every stored avatar.
const ContentType = "image/webp"

// URLPrefix is the public path avatars are served under.
const URLPrefix = "/api/v1/avatars/"

var (
	// ErrAvatarNotFound is returned when no avatar is stored under a key.
	ErrAvatarNotFound = errors.New("avatar not found")
	// ErrInvalidKey is returned for keys that are not <user>/<uuid>.webp.
	ErrInvalidKey = errors.New("invalid avatar key")
)

// ProfileUpdater records avatar URLs on the user's profile.
type ProfileUpdater interface {
	SetAvatar(ctx context.Context, userID, avatarURL string) (string, error)
}

// UploadResult describes a stored avatar.
type UploadResult struct {
	Key  string `json:"key"`
	URL  string `json:"avatar_url"`
	Size int    `json:"size"`
}

// Service processes, stores and serves avatars.
type Service struct {
	store    ObjectStore
	profiles ProfileUpdater
	reads    singleflight.Group
	onError  func(msg string, args ...any)
}

// NewService creates a new avatar service.
func NewService(store ObjectStore, profiles ProfileUpdater) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		onError:  func(string, ...any) {},
	}
}

// Upload converts an image to a WebP avatar, stores it, points the user's
// profile at it and removes the avatar it replaced.
func (s *Service) Upload(ctx context.Context, userID string, data []byte, contentType string) (*UploadResult, error) {
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}
	if !IsAllowedType(contentType) {
		return nil, ErrUnsupportedType
	}

	out, err := Process(data)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s.webp", userID, uuid.New().String())
	if err := s.store.Put(ctx, key, out, userID); err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	url := URLPrefix + key
	previous, err := s.profiles.SetAvatar(ctx, userID, url)
	if err != nil {
		if delErr := s.store.Delete(key); delErr != nil {
			s.onError("Failed to remove orphaned avatar", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if old, ok := KeyFromURL(previous); ok && old != key {
		if err := s.store.Delete(old); err != nil {
			s.onError("Failed to remove previous avatar", "key", old, "error", err)
		}
	}

	return &UploadResult{Key: key, URL: url, Size: len(out)}, nil
}

// Get returns the stored avatar. Concurrent reads of one key share a single
// storage fetch.
func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	if !ValidKey(key) {
		return nil, ErrInvalidKey
	}

	v, err, _ := s.reads.Do(key, func() (any, error) {
		return s.store.Get(key)
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrAvatarNotFound
		}
		return nil, fmt.Errorf("failed to get avatar: %w", err)
	}
	return v.([]byte), nil
}

// ValidKey reports whether key has the form <user uuid>/<uuid>.webp.
func ValidKey(key string) bool {
	userID, file, ok := strings.Cut(key, "/")
	if !ok {
		return false
	}
	name, ok := strings.CutSuffix(file, ".webp")
	if !ok {
		return false
	}
	if _, err := uuid.Parse(userID); err != nil {
		return false
	}
	_, err := uuid.Parse(name)
	return err == nil
}

// KeyFromURL extracts the storage key from an avatar URL produced by Upload.
func KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, URLPrefix)
	if !ok || !ValidKey(key) {
		return "", false
	}
	return key, true
}
