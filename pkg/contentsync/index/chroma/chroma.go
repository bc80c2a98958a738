package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/animstudio/contentsync/pkg/contentsync"
)

// Index is a contentsync.SearchIndex backed by a Chroma server's REST API.
// The embedding computation happens server-side; this adapter only ships
// document text and filename metadata.
//
// Construction probes the server once. After that every call returns a
// plain error on failure and the service layer decides that a failed index
// write is a degraded condition, not a failed operation.
type Index struct {
	baseURL      string
	collectionID string
	client       *http.Client
}

// Config options for the Chroma index
type Config struct {
	BaseURL    string        // e.g. "http://localhost:8000"
	Collection string        // collection name, created if missing
	Timeout    time.Duration // per-request HTTP timeout
}

// New connects to a Chroma server and resolves (or creates) the collection.
// An unreachable server fails construction so the caller can fall back to
// running without an index.
func New(config Config) (*Index, error) {
	if config.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if config.Collection == "" {
		return nil, errors.New("collection name is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	idx := &Index{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  &http.Client{Timeout: config.Timeout},
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	if err := idx.heartbeat(ctx); err != nil {
		return nil, fmt.Errorf("chroma server unreachable: %w", err)
	}

	id, err := idx.getOrCreateCollection(ctx, config.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collection %q: %w", config.Collection, err)
	}
	idx.collectionID = id

	return idx, nil
}

// Upsert stores or replaces the entry for entryID
func (i *Index) Upsert(ctx context.Context, entryID string, text string, metadata map[string]string) error {
	payload := map[string]interface{}{
		"ids":       []string{entryID},
		"documents": []string{text},
		"metadatas": []map[string]string{metadata},
	}
	return i.post(ctx, fmt.Sprintf("/api/v1/collections/%s/upsert", i.collectionID), payload)
}

// Delete removes the entry for entryID; missing entries are not an error
func (i *Index) Delete(ctx context.Context, entryID string) error {
	payload := map[string]interface{}{
		"ids": []string{entryID},
	}
	return i.post(ctx, fmt.Sprintf("/api/v1/collections/%s/delete", i.collectionID), payload)
}

func (i *Index) heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.baseURL+"/api/v1/heartbeat", nil)
	if err != nil {
		return err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat returned status %d", resp.StatusCode)
	}
	return nil
}

func (i *Index) getOrCreateCollection(ctx context.Context, name string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"name":          name,
		"get_or_create": true,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		i.baseURL+"/api/v1/collections", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create collection returned status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("create collection returned no id")
	}
	return out.ID, nil
}

func (i *Index) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", contentsync.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little of the body for a useful error message.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", contentsync.ErrIndexUnavailable, resp.StatusCode, msg)
	}
	return nil
}
