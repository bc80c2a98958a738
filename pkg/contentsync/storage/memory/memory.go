package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/animstudio/contentsync/pkg/contentsync"
)

// Backend is an in-memory implementation of the contentsync.BlobStore
// interface, used for tests and development
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
	updated map[string]time.Time

	// FailUploads makes every Upload fail, simulating an unavailable
	// store. Test use only.
	FailUploads bool
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
		updated: make(map[string]time.Time),
	}
}

// Upload stores content directly, replacing any existing blob
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailUploads {
		return contentsync.ErrStoreUnavailable
	}

	b.objects[objectKey] = data
	b.updated[objectKey] = time.Now().UTC()
	return nil
}

// Download opens the blob for reading
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, contentsync.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the blob
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return contentsync.ErrObjectNotFound
	}

	delete(b.objects, objectKey)
	delete(b.updated, objectKey)
	return nil
}

// Exists reports whether a blob is present
func (b *Backend) Exists(ctx context.Context, objectKey string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[objectKey]
	return exists, nil
}

// GetObjectMeta retrieves metadata for a blob
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*contentsync.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, contentsync.ErrObjectNotFound
	}

	return &contentsync.ObjectMeta{
		Key:       objectKey,
		Size:      int64(len(data)),
		UpdatedAt: b.updated[objectKey],
	}, nil
}
