package retrieval

import (
	"fmt"
	"strings"
	"sync"

	"github.com/smotta/flow-rag-api/models"
	"github.com/smotta/flow-rag-api/services/embedding"
	"go.uber.org/zap"
)

// NoContextSentinel is returned by FormatContext when no matches were
// retrieved. Callers compare against it to detect "no context" without
// inspecting the match list.
const NoContextSentinel = "No relevant context found."

// DefaultTopK is the number of matches retrieved when the caller does not
// specify one.
const DefaultTopK = 3

// maxExcerptLength bounds how much of a document body is rendered into
// the prompt context block.
const maxExcerptLength = 500

// Service owns the embedder and vector store and exposes corpus
// initialization and query-time retrieval as one unit.
type Service struct {
	embedder embedding.Embedder
	store    *VectorStore
	logger   *zap.Logger

	mu          sync.RWMutex
	initialized bool
}

// NewService creates a retrieval service around the given embedder.
func NewService(embedder embedding.Embedder, logger *zap.Logger) *Service {
	return &Service{
		embedder: embedder,
		store:    NewVectorStore(),
		logger:   logger,
	}
}

// Initialize embeds every record and loads the results into the vector
// store, replacing any previous corpus. Per-document embedding failures
// are logged and skipped; only a store-level error leaves the service
// uninitialized. Calling Initialize again with a new corpus is the
// documented way to refresh.
func (s *Service) Initialize(documents []models.DocumentRecord) bool {
	s.logger.Info("initializing retrieval service",
		zap.Int("document_count", len(documents)))

	indexed := make([]models.IndexedDocument, 0, len(documents))
	for _, record := range documents {
		text := record.Content
		if strings.TrimSpace(text) == "" {
			// Empty files still get a vector so the document stays findable.
			text = record.FileName
		}

		vector, err := s.embedder.Embed(text)
		if err != nil {
			s.logger.Error("failed to embed document, skipping",
				zap.String("file_name", record.FileName),
				zap.Error(err))
			continue
		}

		indexed = append(indexed, models.IndexedDocument{
			Record:       record,
			Embedding:    vector,
			EmbeddedText: text,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Clear()
	if err := s.store.Add(indexed); err != nil {
		s.logger.Error("failed to load documents into vector store", zap.Error(err))
		s.initialized = false
		return false
	}

	s.initialized = true
	s.logger.Info("retrieval service initialized",
		zap.Int("embedded_documents", len(indexed)),
		zap.Int("skipped_documents", len(documents)-len(indexed)))
	return true
}

// Retrieve embeds the query and returns the top-k most similar documents.
// Before initialization it returns an empty slice and logs a warning;
// retrieval degrades rather than fails.
func (s *Service) Retrieve(query string, topK int) []models.SimilarityMatch {
	s.mu.RLock()
	initialized := s.initialized
	s.mu.RUnlock()

	if !initialized {
		s.logger.Warn("retrieval requested before corpus initialization")
		return nil
	}

	if topK <= 0 {
		topK = DefaultTopK
	}

	queryVector, err := s.embedder.Embed(query)
	if err != nil {
		s.logger.Error("failed to embed query", zap.Error(err))
		return nil
	}

	matches := s.store.Search(queryVector, topK)
	s.logger.Debug("retrieved context for query",
		zap.Int("matches", len(matches)),
		zap.Int("top_k", topK))
	return matches
}

// FormatContext renders ranked matches into a single delimited block for
// prompt construction. Returns NoContextSentinel when matches is empty.
func (s *Service) FormatContext(matches []models.SimilarityMatch) string {
	if len(matches) == 0 {
		return NoContextSentinel
	}

	parts := make([]string, 0, len(matches))
	for i, match := range matches {
		excerpt := match.Document.EmbeddedText
		if len(excerpt) > maxExcerptLength {
			excerpt = excerpt[:maxExcerptLength] + "..."
		}
		parts = append(parts, fmt.Sprintf(
			"Document %d (similarity: %.3f):\nSource: %s\nContent: %s\n",
			i+1, match.Score, match.Document.Record.FileName, excerpt))
	}
	return strings.Join(parts, "\n---\n")
}

// Stats reports initialization state, document count and embedding
// dimension (0 while the store is empty).
func (s *Service) Stats() models.RetrievalStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.RetrievalStats{
		Initialized:        s.initialized,
		DocumentCount:      s.store.Len(),
		EmbeddingDimension: s.store.Dimension(),
	}
}
