package contentsync

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrInvalidName indicates a user-supplied name resolved to an empty
	// or unsafe storage key
	ErrInvalidName = errors.New("invalid name")

	// ErrUnsupportedExtension indicates an asset extension not allowed
	// for its class
	ErrUnsupportedExtension = errors.New("unsupported file extension")

	// ErrDocumentNotFound indicates a document was not found
	ErrDocumentNotFound = errors.New("document not found")

	// ErrAssetNotFound indicates an asset was not found
	ErrAssetNotFound = errors.New("asset not found")

	// ErrObjectNotFound indicates a blob was not found in storage
	ErrObjectNotFound = errors.New("object not found")

	// ErrStoreUnavailable indicates a durable store (blob or metadata)
	// failed; the current operation is aborted
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrIndexUnavailable indicates the search index is unreachable or
	// timed out; never fatal to a write
	ErrIndexUnavailable = errors.New("search index unavailable")
)

// DocumentError represents an error related to document operations
type DocumentError struct {
	Key string
	Op  string
	Err error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// AssetError represents an error related to asset operations
type AssetError struct {
	AssetID uuid.UUID
	Op      string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
