package handlers

import (
	"net/http"

	"github.com/smotta/flow-rag-api/models"
	"github.com/smotta/flow-rag-api/services"
	"github.com/smotta/flow-rag-api/utils"
	"go.uber.org/zap"
)

// CorpusLoader walks the document folder and produces records.
// Satisfied by *loader.Loader.
type CorpusLoader interface {
	Load() []models.DocumentRecord
}

// CorpusIndex indexes loaded documents and reports retrieval state.
// Satisfied by *retrieval.Service.
type CorpusIndex interface {
	Initialize(documents []models.DocumentRecord) bool
	Stats() models.RetrievalStats
}

// LoadResponse represents the corpus load response
type LoadResponse struct {
	Success         bool   `json:"success"`
	DocumentsLoaded int    `json:"documents_loaded"`
	Message         string `json:"message"`
}

// DocumentsHandler handles corpus management HTTP requests
type DocumentsHandler struct {
	loader CorpusLoader
	index  CorpusIndex
	logger *zap.Logger
}

// NewDocumentsHandler creates a new DocumentsHandler
func NewDocumentsHandler(loader CorpusLoader, index CorpusIndex, logger *zap.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		loader: loader,
		index:  index,
		logger: logger,
	}
}

// HandleLoadDocuments handles POST /api/v1/documents/load.
// Reloading replaces the previous index wholesale.
func (h *DocumentsHandler) HandleLoadDocuments(w http.ResponseWriter, r *http.Request) {
	records := h.loader.Load()
	if len(records) == 0 {
		h.logger.Warn("corpus load found no documents")
		_ = utils.WriteJSON(w, http.StatusOK, LoadResponse{
			Success:         false,
			DocumentsLoaded: 0,
			Message:         "No documents found in the configured folder",
		})
		return
	}

	if !h.index.Initialize(records) {
		h.logger.Error("corpus indexing failed", zap.Int("documents", len(records)))
		HandleServiceError(w, services.WrapInternal("Failed to index loaded documents", nil), h.logger)
		return
	}

	stats := h.index.Stats()
	h.logger.Info("corpus loaded",
		zap.Int("documents", stats.DocumentCount),
		zap.Int("embedding_dimension", stats.EmbeddingDimension))

	_ = utils.WriteJSON(w, http.StatusOK, LoadResponse{
		Success:         true,
		DocumentsLoaded: stats.DocumentCount,
		Message:         "Documents loaded and indexed successfully",
	})
}

// HandleDocumentStats handles GET /api/v1/documents/stats
func (h *DocumentsHandler) HandleDocumentStats(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, h.index.Stats())
}
