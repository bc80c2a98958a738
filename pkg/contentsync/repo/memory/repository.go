package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/animstudio/contentsync/pkg/contentsync"
)

// Repository implements contentsync.Repository using in-memory maps
type Repository struct {
	mu        sync.RWMutex
	documents map[string]*contentsync.Document
	assets    map[uuid.UUID]*contentsync.Asset

	// FailWrites makes every mutation fail, simulating an unavailable
	// metadata store. Test use only.
	FailWrites bool
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		documents: make(map[string]*contentsync.Document),
		assets:    make(map[uuid.UUID]*contentsync.Asset),
	}
}

// Document operations

func (r *Repository) UpsertDocument(ctx context.Context, doc *contentsync.Document) (*contentsync.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWrites {
		return nil, contentsync.ErrStoreUnavailable
	}

	docCopy := *doc
	if existing, ok := r.documents[doc.StorageKey]; ok {
		// CreatedAt is immutable once set.
		docCopy.CreatedAt = existing.CreatedAt
	}
	r.documents[doc.StorageKey] = &docCopy

	result := docCopy
	return &result, nil
}

func (r *Repository) GetDocument(ctx context.Context, storageKey string) (*contentsync.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.documents[storageKey]
	if !exists {
		return nil, contentsync.ErrDocumentNotFound
	}

	docCopy := *doc
	return &docCopy, nil
}

func (r *Repository) DeleteDocument(ctx context.Context, storageKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWrites {
		return contentsync.ErrStoreUnavailable
	}

	if _, exists := r.documents[storageKey]; !exists {
		return contentsync.ErrDocumentNotFound
	}

	delete(r.documents, storageKey)
	return nil
}

func (r *Repository) ListDocuments(ctx context.Context) ([]*contentsync.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*contentsync.Document, 0, len(r.documents))
	for _, doc := range r.documents {
		docCopy := *doc
		result = append(result, &docCopy)
	}

	// Most recently updated first
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	return result, nil
}

// DocumentCount reports the number of stored document rows. Test helper.
func (r *Repository) DocumentCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.documents)
}

// Asset operations

func (r *Repository) CreateAsset(ctx context.Context, asset *contentsync.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWrites {
		return contentsync.ErrStoreUnavailable
	}

	// (class, storage_key) is unique, same as the SQL schemas. Two rows
	// sharing one blob would leave a dangling row when either is deleted.
	for _, existing := range r.assets {
		if existing.Class == asset.Class && existing.StorageKey == asset.StorageKey {
			return fmt.Errorf("duplicate entry in create asset: %q already exists in class %q",
				asset.StorageKey, asset.Class)
		}
	}

	assetCopy := *asset
	r.assets[asset.ID] = &assetCopy
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*contentsync.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.assets[id]
	if !exists {
		return nil, contentsync.ErrAssetNotFound
	}

	assetCopy := *asset
	return &assetCopy, nil
}

func (r *Repository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWrites {
		return contentsync.ErrStoreUnavailable
	}

	if _, exists := r.assets[id]; !exists {
		return contentsync.ErrAssetNotFound
	}

	delete(r.assets, id)
	return nil
}

func (r *Repository) ListAssets(ctx context.Context) ([]*contentsync.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*contentsync.Asset, 0, len(r.assets))
	for _, asset := range r.assets {
		assetCopy := *asset
		result = append(result, &assetCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UploadedAt.After(result[j].UploadedAt)
	})

	return result, nil
}
