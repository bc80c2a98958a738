package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/animstudio/contentsync/pkg/contentsync"
	chromaindex "github.com/animstudio/contentsync/pkg/contentsync/index/chroma"
	"github.com/animstudio/contentsync/pkg/contentsync/probe"
	repomemory "github.com/animstudio/contentsync/pkg/contentsync/repo/memory"
	repopg "github.com/animstudio/contentsync/pkg/contentsync/repo/postgres"
	reposqlite "github.com/animstudio/contentsync/pkg/contentsync/repo/sqlite"
	fsstorage "github.com/animstudio/contentsync/pkg/contentsync/storage/fs"
	memorystorage "github.com/animstudio/contentsync/pkg/contentsync/storage/memory"
	s3storage "github.com/animstudio/contentsync/pkg/contentsync/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		DBSchema:     "content",
		Storage: StorageConfig{
			Type:   "memory",
			Config: map[string]interface{}{},
		},
		IndexCollection:  "animation_docs",
		IndexTimeoutSecs: int(contentsync.DefaultIndexTimeout / time.Second),
	}
}

// ServerConfig represents server configuration for the contentsync service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "sqlite", "postgres"
	DBSchema     string // Postgres schema to use (default: content)

	// Blob storage configuration
	Storage StorageConfig

	// Search index configuration. An empty IndexURL runs without an index;
	// every document write then reports degraded mode.
	IndexURL         string
	IndexCollection  string
	IndexTimeoutSecs int
}

// StorageConfig represents configuration for the blob storage backend
type StorageConfig struct {
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case "memory":
	case "sqlite", "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when using %s", c.DatabaseType)
		}
	default:
		return errors.New("database_type must be 'memory', 'sqlite' or 'postgres'")
	}

	switch c.Storage.Type {
	case "memory", "fs", "s3":
	default:
		return fmt.Errorf("unsupported storage backend type: %s", c.Storage.Type)
	}

	if c.IndexTimeoutSecs <= 0 {
		return errors.New("index timeout must be positive")
	}

	return nil
}

// BuildService creates a Service instance from the server configuration.
// The search index is probed once here; if it is unreachable the service
// starts without one and runs in degraded mode rather than failing startup.
func (c *ServerConfig) BuildService(logger *slog.Logger) (contentsync.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.buildStorageBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}

	options := []contentsync.Option{
		contentsync.WithRepository(repo),
		contentsync.WithBlobStore(store),
		contentsync.WithImageProber(probe.New()),
		contentsync.WithIndexTimeout(time.Duration(c.IndexTimeoutSecs) * time.Second),
		contentsync.WithLogger(logger),
	}

	if c.IndexURL != "" {
		index, err := chromaindex.New(chromaindex.Config{
			BaseURL:    c.IndexURL,
			Collection: c.IndexCollection,
			Timeout:    time.Duration(c.IndexTimeoutSecs) * time.Second,
		})
		if err != nil {
			logger.Warn("search index unavailable at startup, running degraded",
				"url", c.IndexURL, "error", err)
		} else {
			options = append(options, contentsync.WithSearchIndex(index))
		}
	}

	return contentsync.New(options...)
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository() (contentsync.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return repomemory.New(), nil
	case "sqlite":
		return reposqlite.New(c.DatabaseURL)
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// buildStorageBackend creates a BlobStore based on the configuration
func (c *ServerConfig) buildStorageBackend() (contentsync.BlobStore, error) {
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir: getString(c.Storage.Config, "base_dir", "./data/storage"),
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 getString(c.Storage.Config, "region", "us-east-1"),
			Bucket:                 getString(c.Storage.Config, "bucket", ""),
			AccessKeyID:            getString(c.Storage.Config, "access_key_id", ""),
			SecretAccessKey:        getString(c.Storage.Config, "secret_access_key", ""),
			Endpoint:               getString(c.Storage.Config, "endpoint", ""),
			UsePathStyle:           getBool(c.Storage.Config, "use_path_style", false),
			CreateBucketIfNotExist: getBool(c.Storage.Config, "create_bucket_if_not_exist", false),
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.Storage.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
	}
	return defaultValue
}
