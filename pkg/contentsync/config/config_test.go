package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "animation_docs", cfg.IndexCollection)
	assert.Empty(t, cfg.IndexURL)
}

func TestLoadSkipsNilOptions(t *testing.T) {
	cfg, err := Load(nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ServerConfig)
		expectError string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *ServerConfig) {},
		},
		{
			name:        "missing port",
			mutate:      func(c *ServerConfig) { c.Port = "" },
			expectError: "port is required",
		},
		{
			name:        "unknown database type",
			mutate:      func(c *ServerConfig) { c.DatabaseType = "oracle" },
			expectError: "database_type",
		},
		{
			name:        "sqlite without url",
			mutate:      func(c *ServerConfig) { c.DatabaseType = "sqlite" },
			expectError: "database_url is required",
		},
		{
			name:        "postgres without url",
			mutate:      func(c *ServerConfig) { c.DatabaseType = "postgres" },
			expectError: "database_url is required",
		},
		{
			name:        "unknown storage type",
			mutate:      func(c *ServerConfig) { c.Storage.Type = "tape" },
			expectError: "unsupported storage backend",
		},
		{
			name:        "non-positive index timeout",
			mutate:      func(c *ServerConfig) { c.IndexTimeoutSecs = 0 },
			expectError: "index timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
			}
		})
	}
}

func TestBuildServiceMemory(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	svc, err := cfg.BuildService(nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestBuildServiceSQLite(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.DatabaseType = "sqlite"
	cfg.DatabaseURL = t.TempDir() + "/content.db"

	svc, err := cfg.BuildService(nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestBuildServiceFilesystemStorage(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Storage = StorageConfig{
		Type:   "fs",
		Config: map[string]interface{}{"base_dir": t.TempDir()},
	}

	svc, err := cfg.BuildService(nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
