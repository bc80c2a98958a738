package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animstudio/contentsync/pkg/contentsync"
)

func TestUpsertReplaces(t *testing.T) {
	index := New()
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, "doc::notes.txt", "old", map[string]string{"filename": "notes.txt"}))
	require.NoError(t, index.Upsert(ctx, "doc::notes.txt", "new", map[string]string{"filename": "notes.txt"}))

	assert.Equal(t, 1, index.Len())
	entry, ok := index.Get("doc::notes.txt")
	require.True(t, ok)
	assert.Equal(t, "new", entry.Text)
	assert.Equal(t, "notes.txt", entry.Metadata["filename"])
}

func TestDeleteMissingEntryIsNotAnError(t *testing.T) {
	index := New()
	assert.NoError(t, index.Delete(context.Background(), "doc::missing.txt"))
}

func TestFail(t *testing.T) {
	index := New()
	index.Fail = true
	ctx := context.Background()

	err := index.Upsert(ctx, "id", "text", nil)
	assert.ErrorIs(t, err, contentsync.ErrIndexUnavailable)

	err = index.Delete(ctx, "id")
	assert.ErrorIs(t, err, contentsync.ErrIndexUnavailable)
}

func TestLatencyHonorsContext(t *testing.T) {
	index := New()
	index.Latency = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := index.Upsert(ctx, "id", "text", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
