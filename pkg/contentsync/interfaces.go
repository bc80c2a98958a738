package contentsync

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for blob storage backends. Keys are
// path-style: the service composes "namespace/storageKey" so each asset
// class and the document store occupy disjoint namespaces on one backend.
type BlobStore interface {
	// Upload writes content under the given key, replacing any existing blob
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download opens the blob for reading
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the blob
	Delete(ctx context.Context, objectKey string) error

	// Exists reports whether a blob is present without opening it
	Exists(ctx context.Context, objectKey string) (bool, error)

	// GetObjectMeta retrieves size and modification info for a blob
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Repository defines the interface for document and asset metadata
// persistence
type Repository interface {
	// Document operations. UpsertDocument inserts a row or updates an
	// existing one in a single atomic statement, preserving the original
	// CreatedAt when the key already exists.
	UpsertDocument(ctx context.Context, doc *Document) (*Document, error)
	GetDocument(ctx context.Context, storageKey string) (*Document, error)
	DeleteDocument(ctx context.Context, storageKey string) error
	ListDocuments(ctx context.Context) ([]*Document, error)

	// Asset operations
	CreateAsset(ctx context.Context, asset *Asset) error
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
	DeleteAsset(ctx context.Context, id uuid.UUID) error
	ListAssets(ctx context.Context) ([]*Asset, error)
}

// SearchIndex defines the interface for the semantic search projection of
// document text. Upsert has replace semantics and is safe to call whether or
// not the entry exists; Delete is safe to call on a missing entry.
//
// Implementations may be backed by a remote engine that is slow or absent.
// Callers bound every call with a timeout and treat failure as a degraded
// condition, never as a failed write.
type SearchIndex interface {
	Upsert(ctx context.Context, entryID string, text string, metadata map[string]string) error
	Delete(ctx context.Context, entryID string) error
}

// ImageProber reports pixel dimensions of raster image data. Unknown or
// corrupt formats return an error, which ingestion treats as "dimensions
// unknown" rather than a failure.
type ImageProber interface {
	Dimensions(r io.Reader) (width, height int, err error)
}

// ObjectMeta contains metadata about a blob in storage
type ObjectMeta struct {
	Key       string
	Size      int64
	UpdatedAt time.Time
}
