package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animstudio/contentsync/pkg/contentsync"
)

func TestUploadDownloadRoundtrip(t *testing.T) {
	backend := New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "text/notes.txt", strings.NewReader("pan left")))

	reader, err := backend.Download(ctx, "text/notes.txt")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "pan left", string(data))
}

func TestUploadReplaces(t *testing.T) {
	backend := New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "k", strings.NewReader("old")))
	require.NoError(t, backend.Upload(ctx, "k", strings.NewReader("new")))

	reader, err := backend.Download(ctx, "k")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestMissingObject(t *testing.T) {
	backend := New()
	ctx := context.Background()

	_, err := backend.Download(ctx, "missing")
	assert.ErrorIs(t, err, contentsync.ErrObjectNotFound)

	err = backend.Delete(ctx, "missing")
	assert.ErrorIs(t, err, contentsync.ErrObjectNotFound)

	_, err = backend.GetObjectMeta(ctx, "missing")
	assert.ErrorIs(t, err, contentsync.ErrObjectNotFound)

	exists, err := backend.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFailUploads(t *testing.T) {
	backend := New()
	backend.FailUploads = true

	err := backend.Upload(context.Background(), "k", strings.NewReader("x"))
	assert.ErrorIs(t, err, contentsync.ErrStoreUnavailable)
}

func TestGetObjectMeta(t *testing.T) {
	backend := New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "k", strings.NewReader("abc")))

	meta, err := backend.GetObjectMeta(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "k", meta.Key)
	assert.Equal(t, int64(3), meta.Size)
	assert.False(t, meta.UpdatedAt.IsZero())
}
