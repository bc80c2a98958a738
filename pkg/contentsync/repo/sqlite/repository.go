package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/animstudio/contentsync/pkg/contentsync"
)

// Repository implements contentsync.Repository using a local SQLite file.
// Timestamps are stored as RFC3339Nano text in UTC.
type Repository struct {
	db *sql.DB
}

// New opens (or creates) a SQLite-backed repository. Use ":memory:" for an
// in-memory database.
func New(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// Every pooled connection to ":memory:" would get its own empty
	// database, so pin the pool to one connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		storage_key TEXT PRIMARY KEY,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS assets (
		id          TEXT PRIMARY KEY,
		storage_key TEXT NOT NULL,
		class       TEXT NOT NULL,
		project_id  TEXT,
		width       INTEGER,
		height      INTEGER,
		uploaded_at TEXT NOT NULL,
		UNIQUE (class, storage_key)
	);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close releases the underlying database handle
func (r *Repository) Close() error {
	return r.db.Close()
}

// Document operations

func (r *Repository) UpsertDocument(ctx context.Context, doc *contentsync.Document) (*contentsync.Document, error) {
	query := `
		INSERT INTO documents (storage_key, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (storage_key)
		DO UPDATE SET updated_at = excluded.updated_at
		RETURNING storage_key, created_at, updated_at`

	var out contentsync.Document
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query,
		doc.StorageKey, formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt)).
		Scan(&out.StorageKey, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert document %q: %w", doc.StorageKey, err)
	}

	out.CreatedAt = parseTime(createdAt)
	out.UpdatedAt = parseTime(updatedAt)
	return &out, nil
}

func (r *Repository) GetDocument(ctx context.Context, storageKey string) (*contentsync.Document, error) {
	var doc contentsync.Document
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT storage_key, created_at, updated_at FROM documents WHERE storage_key = ?",
		storageKey).Scan(&doc.StorageKey, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contentsync.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %q: %w", storageKey, err)
	}

	doc.CreatedAt = parseTime(createdAt)
	doc.UpdatedAt = parseTime(updatedAt)
	return &doc, nil
}

func (r *Repository) DeleteDocument(ctx context.Context, storageKey string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM documents WHERE storage_key = ?", storageKey)
	if err != nil {
		return fmt.Errorf("delete document %q: %w", storageKey, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return contentsync.ErrDocumentNotFound
	}
	return nil
}

func (r *Repository) ListDocuments(ctx context.Context) ([]*contentsync.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT storage_key, created_at, updated_at FROM documents ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*contentsync.Document
	for rows.Next() {
		var doc contentsync.Document
		var createdAt, updatedAt string
		if err := rows.Scan(&doc.StorageKey, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		doc.CreatedAt = parseTime(createdAt)
		doc.UpdatedAt = parseTime(updatedAt)
		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

// Asset operations

func (r *Repository) CreateAsset(ctx context.Context, asset *contentsync.Asset) error {
	var projectID sql.NullString
	if asset.ProjectID != nil {
		projectID = sql.NullString{String: asset.ProjectID.String(), Valid: true}
	}
	var width, height sql.NullInt64
	if asset.Width != nil {
		width = sql.NullInt64{Int64: int64(*asset.Width), Valid: true}
	}
	if asset.Height != nil {
		height = sql.NullInt64{Int64: int64(*asset.Height), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (id, storage_key, class, project_id, width, height, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		asset.ID.String(), asset.StorageKey, string(asset.Class),
		projectID, width, height, formatTime(asset.UploadedAt))
	if err != nil {
		return fmt.Errorf("create asset %s: %w", asset.ID, err)
	}

	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*contentsync.Asset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, storage_key, class, project_id, width, height, uploaded_at
		FROM assets WHERE id = ?`, id.String())

	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contentsync.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}

	return asset, nil
}

func (r *Repository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("delete asset %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return contentsync.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) ListAssets(ctx context.Context) ([]*contentsync.Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, storage_key, class, project_id, width, height, uploaded_at
		FROM assets ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*contentsync.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}

	return assets, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAsset(row scannable) (*contentsync.Asset, error) {
	var asset contentsync.Asset
	var idStr, class, uploadedAt string
	var projectID sql.NullString
	var width, height sql.NullInt64

	if err := row.Scan(&idStr, &asset.StorageKey, &class, &projectID,
		&width, &height, &uploadedAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("malformed asset id %q: %w", idStr, err)
	}
	asset.ID = id
	asset.Class = contentsync.AssetClass(class)
	asset.UploadedAt = parseTime(uploadedAt)

	if projectID.Valid {
		pid, err := uuid.Parse(projectID.String)
		if err != nil {
			return nil, fmt.Errorf("malformed project id %q: %w", projectID.String, err)
		}
		asset.ProjectID = &pid
	}
	if width.Valid {
		w := int(width.Int64)
		asset.Width = &w
	}
	if height.Valid {
		h := int(height.Int64)
		asset.Height = &h
	}

	return &asset, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
