package contentsync

import (
	"time"

	"github.com/google/uuid"
)

// AssetClass is the domain type for asset destination classes. Each class
// maps to a disjoint blob namespace with its own extension allow-set.
type AssetClass string

// Asset class constants (typed).
const (
	AssetClassBackground AssetClass = "background"
	AssetClassOverlay    AssetClass = "overlay"
	AssetClassUpload     AssetClass = "upload"
)

// IndexState records the outcome of the best-effort search index write that
// accompanies a durable document write.
type IndexState string

// Index state constants (typed).
const (
	// IndexStateIndexed means the search index accepted the upsert.
	IndexStateIndexed IndexState = "indexed"

	// IndexStateDegraded means the durable stores were written but the
	// search index was unavailable, timed out, or is not configured.
	IndexStateDegraded IndexState = "degraded"
)

// Document represents a named text document tracked across the blob store,
// the metadata store and the search index. StorageKey is the single identity
// used in all three.
type Document struct {
	StorageKey string    `json:"storage_key"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// IndexState reflects the most recent synchronized write, not a
	// persisted column. A degraded state never fails the operation.
	IndexState IndexState `json:"index_state,omitempty"`
}

// Asset represents an uploaded binary stored in a class-scoped blob
// namespace with a metadata row keyed by surrogate id.
type Asset struct {
	ID         uuid.UUID  `json:"id"`
	StorageKey string     `json:"storage_key"`
	Class      AssetClass `json:"class"`
	ProjectID  *uuid.UUID `json:"project_id,omitempty"`

	// Width and Height are populated best-effort by the dimension probe.
	// Nil means probing failed, which is not an error.
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`

	UploadedAt time.Time `json:"uploaded_at"`
}

// IngestAssetRequest carries the inputs of the asset ingestion pipeline.
type IngestAssetRequest struct {
	Name         string
	DeclaredType string
	Content      []byte
	ProjectID    *uuid.UUID
}

// ClassConfig describes one asset class: the blob namespace its files live
// under and the lowercase extension allow-set (with leading dot) enforced
// before any write.
type ClassConfig struct {
	Namespace  string
	Extensions []string
}

// ClassSet maps each recognized asset class to its configuration.
type ClassSet map[AssetClass]ClassConfig

// DefaultClasses returns the standard studio class layout: general uploads
// and backgrounds accept common raster formats, overlays are PNG-only for
// the alpha channel.
func DefaultClasses() ClassSet {
	return ClassSet{
		AssetClassBackground: {
			Namespace:  "backgrounds",
			Extensions: []string{".png", ".jpg", ".jpeg", ".webp", ".gif"},
		},
		AssetClassOverlay: {
			Namespace:  "overlays",
			Extensions: []string{".png"},
		},
		AssetClassUpload: {
			Namespace:  "uploads",
			Extensions: []string{".png", ".jpg", ".jpeg", ".webp", ".gif"},
		},
	}
}

// DefaultDocumentNamespace is the blob namespace for text documents.
const DefaultDocumentNamespace = "text"

// DefaultIndexTimeout bounds every search index call so a slow or absent
// index cannot stall the holder of a per-key lock.
const DefaultIndexTimeout = 5 * time.Second
