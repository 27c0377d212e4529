package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/smotta/flow-rag-api/services/chat"
	"github.com/smotta/flow-rag-api/utils"
	"go.uber.org/zap"
)

// ChatRequest represents a chat question over the document corpus
type ChatRequest struct {
	Message       string  `json:"message" validate:"required,min=1,max=4000"`
	Model         string  `json:"model,omitempty"`
	MaxTokens     int     `json:"max_tokens,omitempty" validate:"omitempty,gt=0,lte=8192"`
	Temperature   float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	TopKDocuments int     `json:"top_k_documents,omitempty" validate:"omitempty,gt=0,lte=20"`
}

// ChatService answers questions using retrieved context
type ChatService interface {
	Ask(ctx context.Context, req chat.Request) chat.Response
}

// ChatHandler handles chat HTTP requests
type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// HandleChat handles POST /api/v1/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chimiddleware.GetReqID(ctx)

	var chatReq ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&chatReq); err != nil {
		h.logger.Warn("failed to parse chat request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&chatReq); err != nil {
		h.logger.Warn("chat request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	response := h.service.Ask(ctx, chat.Request{
		RequestID:     requestID,
		Message:       chatReq.Message,
		Model:         chatReq.Model,
		MaxTokens:     chatReq.MaxTokens,
		Temperature:   chatReq.Temperature,
		TopKDocuments: chatReq.TopKDocuments,
	})

	// Generation failures still return 200 with a degraded body; the
	// success flag and error_message carry the outcome.
	_ = utils.WriteJSON(w, http.StatusOK, response)
}
