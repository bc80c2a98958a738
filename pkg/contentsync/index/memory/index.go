package memory

import (
	"context"
	"sync"
	"time"

	"github.com/animstudio/contentsync/pkg/contentsync"
)

// Entry is one indexed document as stored by the in-memory index
type Entry struct {
	Text     string
	Metadata map[string]string
}

// Index is an in-memory implementation of the contentsync.SearchIndex
// interface, used for tests. Fail and Latency simulate an unreachable or
// slow index engine.
type Index struct {
	mu      sync.RWMutex
	entries map[string]Entry

	// Fail makes every call return ErrIndexUnavailable
	Fail bool

	// Latency is added before every call returns, so callers can exercise
	// their timeout handling
	Latency time.Duration
}

// New creates a new in-memory search index
func New() *Index {
	return &Index{entries: make(map[string]Entry)}
}

// Upsert stores or replaces the entry
func (i *Index) Upsert(ctx context.Context, entryID string, text string, metadata map[string]string) error {
	if err := i.simulate(ctx); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	i.entries[entryID] = Entry{Text: text, Metadata: meta}
	return nil
}

// Delete removes the entry; deleting a missing entry is not an error
func (i *Index) Delete(ctx context.Context, entryID string) error {
	if err := i.simulate(ctx); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.entries, entryID)
	return nil
}

// Get returns the entry and whether it exists. Test helper.
func (i *Index) Get(entryID string) (Entry, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	e, ok := i.entries[entryID]
	return e, ok
}

// Len reports the number of entries. Test helper.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

func (i *Index) simulate(ctx context.Context) error {
	if i.Latency > 0 {
		select {
		case <-time.After(i.Latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if i.Fail {
		return contentsync.ErrIndexUnavailable
	}
	return nil
}
