package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/animstudio/contentsync/pkg/contentsync"
)

// DocumentHandler handles HTTP requests for text documents
type DocumentHandler struct {
	service contentsync.Service
	logger  *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(service contentsync.Service, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{service: service, logger: logger}
}

// Routes returns the routes for documents
func (h *DocumentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListDocuments)
	r.Post("/", h.CreateDocument)
	r.Get("/{key}", h.GetDocument)
	r.Get("/{key}/content", h.ReadDocument)
	r.Put("/{key}", h.UpdateDocument)
	r.Delete("/{key}", h.DeleteDocument)

	return r
}

// SaveDocumentRequest is the request body for creating or updating a document
type SaveDocumentRequest struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// DocumentResponse is the response body for a document
type DocumentResponse struct {
	StorageKey string    `json:"storage_key"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	IndexState string    `json:"index_state,omitempty"`
}

func documentResponse(doc *contentsync.Document) DocumentResponse {
	return DocumentResponse{
		StorageKey: doc.StorageKey,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
		IndexState: string(doc.IndexState),
	}
}

// CreateDocument creates or replaces a document under its resolved key
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req SaveDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.service.CreateOrReplaceDocument(r.Context(), req.Name, []byte(req.Content))
	if err != nil {
		h.renderError(w, r, "create document", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, documentResponse(doc))
}

// UpdateDocument updates an existing document's content
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req SaveDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.service.UpdateDocument(r.Context(), key, []byte(req.Content))
	if err != nil {
		h.renderError(w, r, "update document", err)
		return
	}

	render.JSON(w, r, documentResponse(doc))
}

// GetDocument returns a document's metadata
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	doc, err := h.service.GetDocument(r.Context(), key)
	if err != nil {
		h.renderError(w, r, "get document", err)
		return
	}

	render.JSON(w, r, documentResponse(doc))
}

// ReadDocument streams a document's raw content
func (h *DocumentHandler) ReadDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	content, err := h.service.ReadDocument(r.Context(), key)
	if err != nil {
		h.renderError(w, r, "read document", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write(content); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		h.logger.Error("failed to write document content", "key", key, "error", err)
	}
}

// DeleteDocument removes a document from all stores
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := h.service.DeleteDocument(r.Context(), key); err != nil {
		h.renderError(w, r, "delete document", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListDocuments returns all document metadata, most recently updated first
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListDocuments(r.Context())
	if err != nil {
		h.renderError(w, r, "list documents", err)
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, documentResponse(doc))
	}
	render.JSON(w, r, resp)
}

func (h *DocumentHandler) renderError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, contentsync.ErrInvalidName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, contentsync.ErrDocumentNotFound):
		http.Error(w, "document not found", http.StatusNotFound)
	default:
		h.logger.Error("document request failed", "op", op, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
