package contentsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repository   Repository
	blobStore    BlobStore
	searchIndex  SearchIndex
	prober       ImageProber
	classes      ClassSet
	docNamespace string
	indexTimeout time.Duration
	logger       *slog.Logger
	locks        *keyLock
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the metadata repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithSearchIndex sets the search index adapter. Leaving it unset runs the
// service in permanently degraded mode: durable writes succeed and every
// document reports IndexStateDegraded.
func WithSearchIndex(index SearchIndex) Option {
	return func(s *service) {
		s.searchIndex = index
	}
}

// WithImageProber sets the dimension prober used by asset ingestion
func WithImageProber(prober ImageProber) Option {
	return func(s *service) {
		s.prober = prober
	}
}

// WithClasses replaces the asset class layout (blob namespaces and
// extension allow-sets)
func WithClasses(classes ClassSet) Option {
	return func(s *service) {
		s.classes = classes
	}
}

// WithDocumentNamespace sets the blob namespace for text documents
func WithDocumentNamespace(ns string) Option {
	return func(s *service) {
		s.docNamespace = ns
	}
}

// WithIndexTimeout bounds every search index call
func WithIndexTimeout(d time.Duration) Option {
	return func(s *service) {
		s.indexTimeout = d
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		classes:      DefaultClasses(),
		docNamespace: DefaultDocumentNamespace,
		indexTimeout: DefaultIndexTimeout,
		logger:       slog.Default(),
		locks:        newKeyLock(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if _, ok := s.classes[AssetClassUpload]; !ok {
		return nil, fmt.Errorf("class set must include the %q fallback class", AssetClassUpload)
	}

	return s, nil
}

// Document synchronizer operations
//
// Write ordering for a document is blob, then metadata, then index. Content
// is the ground truth: a metadata row without a blob would be visible but
// unreadable, while a blob without a row is an orphan a future sweep could
// adopt. The index is a rebuildable projection and never fails a write.

func (s *service) CreateOrReplaceDocument(ctx context.Context, name string, content []byte) (*Document, error) {
	key, err := ResolveKey(name)
	if err != nil {
		return nil, err
	}

	objectKey := s.documentObjectKey(key)
	s.locks.Lock(objectKey)
	defer s.locks.Unlock(objectKey)

	if err := s.blobStore.Upload(ctx, objectKey, bytes.NewReader(content)); err != nil {
		return nil, &DocumentError{
			Key: key,
			Op:  "create_or_replace",
			Err: fmt.Errorf("%w: blob write: %v", ErrStoreUnavailable, err),
		}
	}

	now := time.Now().UTC()
	doc, err := s.repository.UpsertDocument(ctx, &Document{
		StorageKey: key,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, &DocumentError{
			Key: key,
			Op:  "create_or_replace",
			Err: fmt.Errorf("%w: metadata write: %v", ErrStoreUnavailable, err),
		}
	}

	doc.IndexState = s.indexDocument(ctx, key, content)
	return doc, nil
}

func (s *service) UpdateDocument(ctx context.Context, storageKey string, content []byte) (*Document, error) {
	objectKey := s.documentObjectKey(storageKey)
	s.locks.Lock(objectKey)
	defer s.locks.Unlock(objectKey)

	existing, err := s.repository.GetDocument(ctx, storageKey)
	if err != nil {
		return nil, &DocumentError{Key: storageKey, Op: "update", Err: err}
	}

	if err := s.blobStore.Upload(ctx, objectKey, bytes.NewReader(content)); err != nil {
		return nil, &DocumentError{
			Key: storageKey,
			Op:  "update",
			Err: fmt.Errorf("%w: blob write: %v", ErrStoreUnavailable, err),
		}
	}

	existing.UpdatedAt = time.Now().UTC()
	doc, err := s.repository.UpsertDocument(ctx, existing)
	if err != nil {
		return nil, &DocumentError{
			Key: storageKey,
			Op:  "update",
			Err: fmt.Errorf("%w: metadata write: %v", ErrStoreUnavailable, err),
		}
	}

	doc.IndexState = s.indexDocument(ctx, storageKey, content)
	return doc, nil
}

func (s *service) DeleteDocument(ctx context.Context, storageKey string) error {
	objectKey := s.documentObjectKey(storageKey)
	s.locks.Lock(objectKey)
	defer s.locks.Unlock(objectKey)

	if err := s.repository.DeleteDocument(ctx, storageKey); err != nil {
		return &DocumentError{Key: storageKey, Op: "delete", Err: err}
	}

	// Neither durable delete depends on the other succeeding; a blob that
	// is already gone is fine.
	if err := s.blobStore.Delete(ctx, objectKey); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return &DocumentError{
			Key: storageKey,
			Op:  "delete",
			Err: fmt.Errorf("%w: blob delete: %v", ErrStoreUnavailable, err),
		}
	}

	s.deleteIndexEntry(ctx, storageKey)
	return nil
}

func (s *service) ReadDocument(ctx context.Context, storageKey string) ([]byte, error) {
	// Reads go straight to the blob store with no metadata lookup in
	// between, so the key must be canonical before it can reach a path
	// join. A key that does not resolve to itself cannot name a stored
	// document.
	if resolved, err := ResolveKey(storageKey); err != nil || resolved != storageKey {
		return nil, &DocumentError{Key: storageKey, Op: "read", Err: ErrInvalidName}
	}

	objectKey := s.documentObjectKey(storageKey)
	s.locks.Lock(objectKey)
	defer s.locks.Unlock(objectKey)

	reader, err := s.blobStore.Download(ctx, objectKey)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, &DocumentError{Key: storageKey, Op: "read", Err: ErrDocumentNotFound}
		}
		return nil, &DocumentError{
			Key: storageKey,
			Op:  "read",
			Err: fmt.Errorf("%w: %v", ErrStoreUnavailable, err),
		}
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

func (s *service) GetDocument(ctx context.Context, storageKey string) (*Document, error) {
	return s.repository.GetDocument(ctx, storageKey)
}

func (s *service) ListDocuments(ctx context.Context) ([]*Document, error) {
	return s.repository.ListDocuments(ctx)
}

// Asset ingestion pipeline operations

func (s *service) IngestAsset(ctx context.Context, req IngestAssetRequest) (*Asset, error) {
	// Unrecognized declared types fall back to the generic upload class
	// rather than failing, matching the behavior callers rely on.
	class := AssetClass(req.DeclaredType)
	cfg, ok := s.classes[class]
	if !ok {
		class = AssetClassUpload
		cfg = s.classes[class]
	}

	key, err := ResolveKey(req.Name)
	if err != nil {
		return nil, err
	}

	// The extension gate is the pipeline's only hard rejection and must
	// run before any write so a refused upload leaves zero side effects.
	ext := strings.ToLower(path.Ext(key))
	if ext == "" || !slices.Contains(cfg.Extensions, ext) {
		return nil, fmt.Errorf("%w: %q for class %q", ErrUnsupportedExtension, ext, class)
	}

	objectKey := cfg.Namespace + "/" + key
	s.locks.Lock(objectKey)
	defer s.locks.Unlock(objectKey)

	if err := s.blobStore.Upload(ctx, objectKey, bytes.NewReader(req.Content)); err != nil {
		return nil, &StorageError{
			Backend: cfg.Namespace,
			Key:     objectKey,
			Op:      "upload",
			Err:     fmt.Errorf("%w: %v", ErrStoreUnavailable, err),
		}
	}

	asset := &Asset{
		ID:         uuid.New(),
		StorageKey: key,
		Class:      class,
		ProjectID:  req.ProjectID,
		UploadedAt: time.Now().UTC(),
	}

	if width, height, err := s.probeDimensions(req.Content); err == nil {
		asset.Width = &width
		asset.Height = &height
	} else {
		s.logger.Debug("dimension probe failed, ingesting without dimensions",
			"key", key, "class", class, "error", err)
	}

	if err := s.repository.CreateAsset(ctx, asset); err != nil {
		// The blob is already durable; the orphan is recoverable, the
		// reverse would not be.
		return nil, &AssetError{
			AssetID: asset.ID,
			Op:      "ingest",
			Err:     fmt.Errorf("%w: metadata write: %v", ErrStoreUnavailable, err),
		}
	}

	return asset, nil
}

func (s *service) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	asset, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return &AssetError{AssetID: id, Op: "delete", Err: err}
	}

	objectKey, err := s.assetObjectKey(asset)
	if err != nil {
		return &AssetError{AssetID: id, Op: "delete", Err: err}
	}
	s.locks.Lock(objectKey)
	defer s.locks.Unlock(objectKey)

	if err := s.blobStore.Delete(ctx, objectKey); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return &StorageError{
			Backend: string(asset.Class),
			Key:     objectKey,
			Op:      "delete",
			Err:     fmt.Errorf("%w: %v", ErrStoreUnavailable, err),
		}
	}

	if err := s.repository.DeleteAsset(ctx, id); err != nil {
		return &AssetError{AssetID: id, Op: "delete", Err: err}
	}

	return nil
}

func (s *service) GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error) {
	return s.repository.GetAsset(ctx, id)
}

func (s *service) ListAssets(ctx context.Context) ([]*Asset, error) {
	return s.repository.ListAssets(ctx)
}

func (s *service) OpenAsset(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	asset, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return nil, &AssetError{AssetID: id, Op: "open", Err: err}
	}

	objectKey, err := s.assetObjectKey(asset)
	if err != nil {
		return nil, &AssetError{AssetID: id, Op: "open", Err: err}
	}

	reader, err := s.blobStore.Download(ctx, objectKey)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, &AssetError{AssetID: id, Op: "open", Err: ErrAssetNotFound}
		}
		return nil, &StorageError{
			Backend: string(asset.Class),
			Key:     objectKey,
			Op:      "download",
			Err:     fmt.Errorf("%w: %v", ErrStoreUnavailable, err),
		}
	}

	return reader, nil
}

// Helper methods

func (s *service) documentObjectKey(storageKey string) string {
	return s.docNamespace + "/" + storageKey
}

func (s *service) assetObjectKey(asset *Asset) (string, error) {
	cfg, ok := s.classes[asset.Class]
	if !ok {
		return "", fmt.Errorf("unknown asset class %q", asset.Class)
	}
	return cfg.Namespace + "/" + asset.StorageKey, nil
}

func (s *service) probeDimensions(content []byte) (int, int, error) {
	if s.prober == nil {
		return 0, 0, errors.New("no image prober configured")
	}
	return s.prober.Dimensions(bytes.NewReader(content))
}

// indexDocument performs the best-effort index upsert that follows every
// durable document write. The call is bounded by the index timeout so a slow
// index cannot stall the per-key lock holder; any failure leaves the
// document in degraded mode and is recorded, never surfaced.
func (s *service) indexDocument(ctx context.Context, storageKey string, content []byte) IndexState {
	if s.searchIndex == nil {
		s.logger.Warn("no search index configured, document saved unindexed",
			"key", storageKey)
		return IndexStateDegraded
	}

	ictx, cancel := context.WithTimeout(ctx, s.indexTimeout)
	defer cancel()

	err := s.searchIndex.Upsert(ictx, indexEntryID(storageKey), string(content),
		map[string]string{"filename": storageKey})
	if err != nil {
		s.logger.Warn("search index upsert failed, document saved unindexed",
			"key", storageKey, "error", err)
		return IndexStateDegraded
	}

	return IndexStateIndexed
}

// deleteIndexEntry removes the document's index entry. A missing entry (for
// example when the document was written in degraded mode) is not an error.
func (s *service) deleteIndexEntry(ctx context.Context, storageKey string) {
	if s.searchIndex == nil {
		return
	}

	ictx, cancel := context.WithTimeout(ctx, s.indexTimeout)
	defer cancel()

	if err := s.searchIndex.Delete(ictx, indexEntryID(storageKey)); err != nil {
		s.logger.Warn("search index delete failed, entry may linger until reindex",
			"key", storageKey, "error", err)
	}
}
