package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animstudio/contentsync/pkg/contentsync"
)

func TestUpsertDocumentPreservesCreatedAt(t *testing.T) {
	repo := New()
	ctx := context.Background()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first, err := repo.UpsertDocument(ctx, &contentsync.Document{
		StorageKey: "notes.txt",
		CreatedAt:  created,
		UpdatedAt:  created,
	})
	require.NoError(t, err)
	assert.Equal(t, created, first.CreatedAt)

	later := created.Add(time.Hour)
	second, err := repo.UpsertDocument(ctx, &contentsync.Document{
		StorageKey: "notes.txt",
		CreatedAt:  later,
		UpdatedAt:  later,
	})
	require.NoError(t, err)

	assert.Equal(t, created, second.CreatedAt, "CreatedAt survives the upsert")
	assert.Equal(t, later, second.UpdatedAt)
	assert.Equal(t, 1, repo.DocumentCount())
}

func TestGetDocumentReturnsCopy(t *testing.T) {
	repo := New()
	ctx := context.Background()

	_, err := repo.UpsertDocument(ctx, &contentsync.Document{StorageKey: "notes.txt"})
	require.NoError(t, err)

	doc, err := repo.GetDocument(ctx, "notes.txt")
	require.NoError(t, err)
	doc.IndexState = contentsync.IndexStateDegraded

	again, err := repo.GetDocument(ctx, "notes.txt")
	require.NoError(t, err)
	assert.NotEqual(t, contentsync.IndexStateDegraded, again.IndexState,
		"mutating a returned document must not touch the stored row")
}

func TestDocumentNotFound(t *testing.T) {
	repo := New()
	ctx := context.Background()

	_, err := repo.GetDocument(ctx, "missing.txt")
	assert.ErrorIs(t, err, contentsync.ErrDocumentNotFound)

	err = repo.DeleteDocument(ctx, "missing.txt")
	assert.ErrorIs(t, err, contentsync.ErrDocumentNotFound)
}

func TestListDocumentsOrdering(t *testing.T) {
	repo := New()
	ctx := context.Background()

	base := time.Now().UTC()
	for i, key := range []string{"a.txt", "b.txt", "c.txt"} {
		_, err := repo.UpsertDocument(ctx, &contentsync.Document{
			StorageKey: key,
			CreatedAt:  base,
			UpdatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	docs, err := repo.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "c.txt", docs[0].StorageKey, "most recently updated first")
	assert.Equal(t, "a.txt", docs[2].StorageKey)
}

func TestFailWrites(t *testing.T) {
	repo := New()
	repo.FailWrites = true
	ctx := context.Background()

	_, err := repo.UpsertDocument(ctx, &contentsync.Document{StorageKey: "notes.txt"})
	assert.ErrorIs(t, err, contentsync.ErrStoreUnavailable)

	err = repo.CreateAsset(ctx, &contentsync.Asset{ID: uuid.New()})
	assert.ErrorIs(t, err, contentsync.ErrStoreUnavailable)
}

func TestAssetLifecycle(t *testing.T) {
	repo := New()
	ctx := context.Background()

	width := 320
	asset := &contentsync.Asset{
		ID:         uuid.New(),
		StorageKey: "scene.png",
		Class:      contentsync.AssetClassBackground,
		Width:      &width,
		UploadedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateAsset(ctx, asset))

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.StorageKey, got.StorageKey)
	assert.Equal(t, asset.Class, got.Class)
	require.NotNil(t, got.Width)
	assert.Equal(t, 320, *got.Width)

	require.NoError(t, repo.DeleteAsset(ctx, asset.ID))

	_, err = repo.GetAsset(ctx, asset.ID)
	assert.ErrorIs(t, err, contentsync.ErrAssetNotFound)
	err = repo.DeleteAsset(ctx, asset.ID)
	assert.ErrorIs(t, err, contentsync.ErrAssetNotFound)
}

func TestCreateAssetDuplicateClassAndKey(t *testing.T) {
	repo := New()
	ctx := context.Background()

	first := &contentsync.Asset{
		ID:         uuid.New(),
		StorageKey: "scene.png",
		Class:      contentsync.AssetClassBackground,
		UploadedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateAsset(ctx, first))

	dup := &contentsync.Asset{
		ID:         uuid.New(),
		StorageKey: "scene.png",
		Class:      contentsync.AssetClassBackground,
		UploadedAt: time.Now().UTC(),
	}
	err := repo.CreateAsset(ctx, dup)
	require.Error(t, err, "class+key must stay unique")
	assert.Contains(t, err.Error(), "duplicate entry")

	other := &contentsync.Asset{
		ID:         uuid.New(),
		StorageKey: "scene.png",
		Class:      contentsync.AssetClassOverlay,
		UploadedAt: time.Now().UTC(),
	}
	assert.NoError(t, repo.CreateAsset(ctx, other), "same key under another class is fine")

	assets, err := repo.ListAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 2)
}

func TestListAssetsOrdering(t *testing.T) {
	repo := New()
	ctx := context.Background()

	base := time.Now().UTC()
	var last uuid.UUID
	for i, key := range []string{"a.png", "b.png", "c.png"} {
		id := uuid.New()
		require.NoError(t, repo.CreateAsset(ctx, &contentsync.Asset{
			ID:         id,
			StorageKey: key,
			Class:      contentsync.AssetClassUpload,
			UploadedAt: base.Add(time.Duration(i) * time.Minute),
		}))
		last = id
	}

	assets, err := repo.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 3)
	assert.Equal(t, last, assets[0].ID, "most recently uploaded first")
}
