package avatar

import (
	"context"
	"fmt"
	"time"

	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
)

// ObjectStore is the subset of object storage the avatar service needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, userID string) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// bucketStore stores avatars in an fs-jetstream bucket.
type bucketStore struct {
	bucket fsjetstream.FileStoragePort
}

// NewBucketStore wraps an fs-jetstream bucket.
func NewBucketStore(bucket fsjetstream.FileStoragePort) ObjectStore {
	return &bucketStore{bucket: bucket}
}

func (s *bucketStore) Put(ctx context.Context, key string, data []byte, userID string) error {
	_, err := s.bucket.Put(ctx, key, data,
		fsjetstream.WithDescription(fmt.Sprintf("Avatar for %s", userID)),
		fsjetstream.WithHeaders(map[string]string{
			"Content-Type": ContentType,
			"User-ID":      userID,
			"Uploaded-At":  time.Now().Format(time.RFC3339),
		}),
	)
	return err
}

func (s *bucketStore) Get(key string) ([]byte, error) {
	return s.bucket.Get(key)
}

func (s *bucketStore) Delete(key string) error {
	return s.bucket.Delete(key)
}
