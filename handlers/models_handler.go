package handlers

import (
	"context"
	"net/http"

	"github.com/smotta/flow-rag-api/models"
	"github.com/smotta/flow-rag-api/utils"
	"go.uber.org/zap"
)

// ModelCatalog exposes model discovery and selection. Satisfied by
// *gateway.Service.
type ModelCatalog interface {
	ListModels(ctx context.Context) []models.ModelDescriptor
	RefreshModels(ctx context.Context) []models.ModelDescriptor
	ChatModelNames(ctx context.Context) []string
	SelectModel(ctx context.Context, requested string) string
}

// ModelsResponse represents the model listing response
type ModelsResponse struct {
	AvailableModels []string                 `json:"available_models"`
	DefaultModel    string                   `json:"default_model"`
	TotalModels     int                      `json:"total_models"`
	ModelsDetails   []models.ModelDescriptor `json:"models_details"`
	Success         bool                     `json:"success"`
	Message         string                   `json:"message"`
}

// ModelsHandler handles model discovery HTTP requests
type ModelsHandler struct {
	catalog ModelCatalog
	logger  *zap.Logger
}

// NewModelsHandler creates a new ModelsHandler
func NewModelsHandler(catalog ModelCatalog, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// HandleListModels handles GET /api/v1/models
func (h *ModelsHandler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	descriptors := h.catalog.ListModels(r.Context())
	names := h.catalog.ChatModelNames(r.Context())

	_ = utils.WriteJSON(w, http.StatusOK, ModelsResponse{
		AvailableModels: names,
		DefaultModel:    h.catalog.SelectModel(r.Context(), ""),
		TotalModels:     len(names),
		ModelsDetails:   descriptors,
		Success:         true,
		Message:         "Models retrieved successfully",
	})
}

// HandleRefreshModels handles POST /api/v1/models/refresh
func (h *ModelsHandler) HandleRefreshModels(w http.ResponseWriter, r *http.Request) {
	descriptors := h.catalog.RefreshModels(r.Context())
	names := h.catalog.ChatModelNames(r.Context())

	h.logger.Info("model cache refreshed", zap.Int("models", len(descriptors)))

	_ = utils.WriteJSON(w, http.StatusOK, ModelsResponse{
		AvailableModels: names,
		DefaultModel:    h.catalog.SelectModel(r.Context(), ""),
		TotalModels:     len(names),
		ModelsDetails:   descriptors,
		Success:         true,
		Message:         "Models cache refreshed successfully",
	})
}
