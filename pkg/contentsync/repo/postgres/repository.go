package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/animstudio/contentsync/pkg/contentsync"
)

// DBTX is an interface that allows us to use either a database connection or
// a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements contentsync.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Schema returns the DDL for the tables this repository uses. Safe to run
// repeatedly.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS documents (
    storage_key TEXT PRIMARY KEY,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assets (
    id          UUID PRIMARY KEY,
    storage_key TEXT NOT NULL,
    class       TEXT NOT NULL,
    project_id  UUID,
    width       INTEGER,
    height      INTEGER,
    uploaded_at TIMESTAMPTZ NOT NULL,
    UNIQUE (class, storage_key)
);`
}

// Document operations

// UpsertDocument inserts the row or, when the key already exists, bumps
// updated_at while leaving created_at untouched. One atomic statement, so
// concurrent upserts of the same key cannot clobber the original timestamp.
func (r *Repository) UpsertDocument(ctx context.Context, doc *contentsync.Document) (*contentsync.Document, error) {
	query := `
		INSERT INTO documents (storage_key, created_at, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (storage_key)
		DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING storage_key, created_at, updated_at`

	var out contentsync.Document
	err := r.db.QueryRow(ctx, query, doc.StorageKey, doc.CreatedAt, doc.UpdatedAt).
		Scan(&out.StorageKey, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, handleError("upsert document", err)
	}

	return &out, nil
}

func (r *Repository) GetDocument(ctx context.Context, storageKey string) (*contentsync.Document, error) {
	query := `
		SELECT storage_key, created_at, updated_at
		FROM documents WHERE storage_key = $1`

	var doc contentsync.Document
	err := r.db.QueryRow(ctx, query, storageKey).
		Scan(&doc.StorageKey, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentsync.ErrDocumentNotFound
		}
		return nil, handleError("get document", err)
	}

	return &doc, nil
}

func (r *Repository) DeleteDocument(ctx context.Context, storageKey string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE storage_key = $1`, storageKey)
	if err != nil {
		return handleError("delete document", err)
	}
	if tag.RowsAffected() == 0 {
		return contentsync.ErrDocumentNotFound
	}
	return nil
}

func (r *Repository) ListDocuments(ctx context.Context) ([]*contentsync.Document, error) {
	query := `
		SELECT storage_key, created_at, updated_at
		FROM documents ORDER BY updated_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, handleError("list documents", err)
	}
	defer rows.Close()

	var docs []*contentsync.Document
	for rows.Next() {
		var doc contentsync.Document
		if err := rows.Scan(&doc.StorageKey, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

// Asset operations

func (r *Repository) CreateAsset(ctx context.Context, asset *contentsync.Asset) error {
	query := `
		INSERT INTO assets (id, storage_key, class, project_id, width, height, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		asset.ID, asset.StorageKey, string(asset.Class), asset.ProjectID,
		asset.Width, asset.Height, asset.UploadedAt)
	if err != nil {
		return handleError("create asset", err)
	}

	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*contentsync.Asset, error) {
	query := `
		SELECT id, storage_key, class, project_id, width, height, uploaded_at
		FROM assets WHERE id = $1`

	asset, err := scanAsset(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentsync.ErrAssetNotFound
		}
		return nil, handleError("get asset", err)
	}

	return asset, nil
}

func (r *Repository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return handleError("delete asset", err)
	}
	if tag.RowsAffected() == 0 {
		return contentsync.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) ListAssets(ctx context.Context) ([]*contentsync.Asset, error) {
	query := `
		SELECT id, storage_key, class, project_id, width, height, uploaded_at
		FROM assets ORDER BY uploaded_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, handleError("list assets", err)
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

func scanAsset(row pgx.Row) (*contentsync.Asset, error) {
	var asset contentsync.Asset
	var class string
	err := row.Scan(&asset.ID, &asset.StorageKey, &class, &asset.ProjectID,
		&asset.Width, &asset.Height, &asset.UploadedAt)
	if err != nil {
		return nil, err
	}
	asset.Class = contentsync.AssetClass(class)
	return &asset, nil
}

func handleError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s: %s", operation, pgErr.ConstraintName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}
