package contentsync

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service is the write-path entry point the rest of the application calls.
// All mutations of documents and assets go through it; nothing else touches
// the underlying stores directly.
type Service interface {
	// Document synchronizer operations
	CreateOrReplaceDocument(ctx context.Context, name string, content []byte) (*Document, error)
	UpdateDocument(ctx context.Context, storageKey string, content []byte) (*Document, error)
	DeleteDocument(ctx context.Context, storageKey string) error
	ReadDocument(ctx context.Context, storageKey string) ([]byte, error)
	GetDocument(ctx context.Context, storageKey string) (*Document, error)
	ListDocuments(ctx context.Context) ([]*Document, error)

	// Asset ingestion pipeline operations
	IngestAsset(ctx context.Context, req IngestAssetRequest) (*Asset, error)
	DeleteAsset(ctx context.Context, id uuid.UUID) error
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
	ListAssets(ctx context.Context) ([]*Asset, error)
	OpenAsset(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
}
