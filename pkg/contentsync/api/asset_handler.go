package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/animstudio/contentsync/pkg/contentsync"
)

// maxUploadBytes caps multipart uploads. Studio assets stay well below this.
const maxUploadBytes = 64 << 20

// AssetHandler handles HTTP requests for binary assets
type AssetHandler struct {
	service contentsync.Service
	logger  *slog.Logger
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(service contentsync.Service, logger *slog.Logger) *AssetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetHandler{service: service, logger: logger}
}

// Routes returns the routes for assets
func (h *AssetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListAssets)
	r.Post("/", h.UploadAsset)
	r.Get("/{id}", h.GetAsset)
	r.Get("/{id}/content", h.DownloadAsset)
	r.Delete("/{id}", h.DeleteAsset)

	return r
}

// AssetResponse is the response body for an asset
type AssetResponse struct {
	ID         string    `json:"id"`
	StorageKey string    `json:"storage_key"`
	Class      string    `json:"class"`
	ProjectID  string    `json:"project_id,omitempty"`
	Width      *int      `json:"width,omitempty"`
	Height     *int      `json:"height,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func assetResponse(asset *contentsync.Asset) AssetResponse {
	resp := AssetResponse{
		ID:         asset.ID.String(),
		StorageKey: asset.StorageKey,
		Class:      string(asset.Class),
		Width:      asset.Width,
		Height:     asset.Height,
		UploadedAt: asset.UploadedAt,
	}
	if asset.ProjectID != nil {
		resp.ProjectID = asset.ProjectID.String()
	}
	return resp
}

// UploadAsset ingests a multipart upload. Form fields:
//   - file: the uploaded binary (required)
//   - type: 'background', 'overlay', or 'upload' (default 'upload')
//   - project_id: optional uuid
func (h *AssetHandler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file selected", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	req := contentsync.IngestAssetRequest{
		Name:         header.Filename,
		DeclaredType: r.FormValue("type"),
		Content:      content,
	}

	if pid := r.FormValue("project_id"); pid != "" {
		projectID, err := uuid.Parse(pid)
		if err != nil {
			http.Error(w, "invalid project id", http.StatusBadRequest)
			return
		}
		req.ProjectID = &projectID
	}

	asset, err := h.service.IngestAsset(r.Context(), req)
	if err != nil {
		h.renderError(w, r, "upload asset", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, assetResponse(asset))
}

// GetAsset returns an asset's metadata
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid asset id", http.StatusBadRequest)
		return
	}

	asset, err := h.service.GetAsset(r.Context(), id)
	if err != nil {
		h.renderError(w, r, "get asset", err)
		return
	}

	render.JSON(w, r, assetResponse(asset))
}

// DownloadAsset streams the asset's blob
func (h *AssetHandler) DownloadAsset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid asset id", http.StatusBadRequest)
		return
	}

	reader, err := h.service.OpenAsset(r.Context(), id)
	if err != nil {
		h.renderError(w, r, "download asset", err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Error("failed to stream asset", "id", id, "error", err)
	}
}

// DeleteAsset removes an asset's blob and metadata row
func (h *AssetHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid asset id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteAsset(r.Context(), id); err != nil {
		h.renderError(w, r, "delete asset", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListAssets returns all asset metadata, most recently uploaded first
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.ListAssets(r.Context())
	if err != nil {
		h.renderError(w, r, "list assets", err)
		return
	}

	resp := make([]AssetResponse, 0, len(assets))
	for _, asset := range assets {
		resp = append(resp, assetResponse(asset))
	}
	render.JSON(w, r, resp)
}

func (h *AssetHandler) renderError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, contentsync.ErrInvalidName),
		errors.Is(err, contentsync.ErrUnsupportedExtension):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, contentsync.ErrAssetNotFound):
		http.Error(w, "asset not found", http.StatusNotFound)
	default:
		h.logger.Error("asset request failed", "op", op, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
