package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smotta/flow-rag-api/models"
	"github.com/smotta/flow-rag-api/services/gateway"
	"github.com/smotta/flow-rag-api/services/retrieval"
	"go.uber.org/zap"
)

// ContextRetriever supplies ranked document matches for a query.
// Satisfied by *retrieval.Service.
type ContextRetriever interface {
	Retrieve(query string, topK int) []models.SimilarityMatch
	FormatContext(matches []models.SimilarityMatch) string
}

// Generator produces a chat completion. Satisfied by *gateway.Service.
type Generator interface {
	Generate(ctx context.Context, req gateway.GenerateRequest) models.GatewayResult
}

// Auditor receives interaction records for best-effort persistence.
// Satisfied by *audit.Service.
type Auditor interface {
	Record(record *models.ChatAuditRecord) error
}

// Request is one caller-facing chat request. Model, MaxTokens,
// Temperature and TopKDocuments are optional and default downstream.
type Request struct {
	RequestID     string
	Message       string
	Model         string
	MaxTokens     int
	Temperature   float64
	TopKDocuments int
}

// Response is the caller-facing answer. Generation failures never
// surface as errors here; they produce a degraded best-effort response
// with the underlying failure preserved in ErrorMessage and Metadata.
type Response struct {
	Response     string                  `json:"response"`
	Success      bool                    `json:"success"`
	ContextUsed  []models.ContextSnippet `json:"context_used"`
	ErrorMessage *string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{}  `json:"metadata"`
}

// Service orchestrates retrieval and generation for chat requests
type Service struct {
	retriever ContextRetriever
	generator Generator
	auditor   Auditor
	logger    *zap.Logger
}

// NewService creates a chat orchestration service. The auditor may be
// nil, which disables interaction recording.
func NewService(retriever ContextRetriever, generator Generator, auditor Auditor, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		generator: generator,
		auditor:   auditor,
		logger:    logger,
	}
}

// Ask retrieves context for the question, generates an answer and
// records the interaction. Generation failures degrade to a synthesized
// answer built from the retrieved context rather than an error.
func (s *Service) Ask(ctx context.Context, req Request) Response {
	start := time.Now()

	matches := s.retriever.Retrieve(req.Message, req.TopKDocuments)
	contextBlock := s.retriever.FormatContext(matches)
	snippets := contextSnippets(matches)

	result := s.generator.Generate(ctx, gateway.GenerateRequest{
		Message:     req.Message,
		Context:     contextBlock,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})

	metadata := map[string]interface{}{
		"documents_retrieved": len(matches),
		"query_length":        len(req.Message),
		"timestamp":           time.Now().Format(time.RFC3339),
		"model_requested":     req.Model,
		"model_used":          result.ModelUsed,
	}

	var response Response
	if result.Success {
		response = Response{
			Response:    result.Response,
			Success:     true,
			ContextUsed: snippets,
			Metadata:    metadata,
		}
	} else {
		errorDetails := "generation failed"
		if result.Err != nil {
			errorDetails = result.Err.Error()
		}
		s.logger.Error("generation failed, returning degraded response",
			zap.String("error", errorDetails),
			zap.Int("documents_retrieved", len(matches)))

		metadata["fallback_used"] = true
		response = Response{
			Response:     degradedResponse(contextBlock, req.Message),
			Success:      false,
			ContextUsed:  snippets,
			ErrorMessage: &errorDetails,
			Metadata:     metadata,
		}
	}

	s.recordInteraction(req, response, result.ModelUsed, len(matches), time.Since(start))
	return response
}

func (s *Service) recordInteraction(req Request, resp Response, modelUsed string, documentCount int, latency time.Duration) {
	if s.auditor == nil {
		return
	}

	record := models.NewChatAuditRecord(req.RequestID, req.Message).
		WithAnswer(resp.Response).
		WithModel(modelUsed).
		WithOutcome(resp.Success, !resp.Success).
		WithRetrieval(documentCount).
		WithLatency(latency)
	if resp.ErrorMessage != nil {
		record.WithError(*resp.ErrorMessage)
	}

	if err := s.auditor.Record(record); err != nil {
		s.logger.Warn("failed to record chat interaction", zap.Error(err))
	}
}

const (
	degradedContextLimit = 1000
	snippetExcerptLimit  = 200
)

// contextSnippets summarizes retrieved matches for the caller. Always
// non-nil so the field serializes as an empty list, not null.
func contextSnippets(matches []models.SimilarityMatch) []models.ContextSnippet {
	snippets := make([]models.ContextSnippet, 0, len(matches))
	for _, match := range matches {
		excerpt := match.Document.Record.Content
		if len(excerpt) > snippetExcerptLimit {
			excerpt = excerpt[:snippetExcerptLimit] + "..."
		}
		snippets = append(snippets, models.ContextSnippet{
			FileName: match.Document.Record.FileName,
			Score:    match.Score,
			Excerpt:  excerpt,
		})
	}
	return snippets
}

// degradedResponse synthesizes a best-effort answer when the model is
// unreachable. With usable context it surfaces the retrieved excerpts
// directly; without context it apologizes and asks for a retry.
func degradedResponse(contextBlock, userMessage string) string {
	if contextBlock != "" && strings.TrimSpace(contextBlock) != retrieval.NoContextSentinel {
		truncated := contextBlock
		suffix := ""
		if len(truncated) > degradedContextLimit {
			truncated = truncated[:degradedContextLimit]
			suffix = "..."
		}
		return fmt.Sprintf("I found some relevant information in the documents, but I'm currently unable to process it through the AI service.\n\n"+
			"Here's what I found related to your question %q:\n\n%s%s\n\n"+
			"Please try again later or contact support if the issue persists.", userMessage, truncated, suffix)
	}
	return fmt.Sprintf("I apologize, but I'm currently unable to process your question %q due to a service issue. "+
		"Please try again later or contact support if the issue persists.", userMessage)
}
