package retrieval

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/smotta/flow-rag-api/models"
)

// VectorStore is an append-only in-memory collection of indexed documents
// with brute-force cosine similarity search. Queries are O(n) over all
// stored vectors, which is acceptable for the bounded corpus sizes this
// service targets; an indexed nearest-neighbor structure can replace it
// behind the same methods.
type VectorStore struct {
	mu        sync.RWMutex
	dimension int
	documents []models.IndexedDocument
}

// NewVectorStore creates an empty store. The vector dimension is pinned
// by the first Add call.
func NewVectorStore() *VectorStore {
	return &VectorStore{}
}

// Add appends documents to the store. Every vector in a store must share
// one dimension; a mismatch is a programming error in the embedding layer
// and is reported as a store-level failure. No deduplication, no eviction.
func (s *VectorStore) Add(documents []models.IndexedDocument) error {
	if len(documents) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dimension := s.dimension
	if dimension == 0 {
		dimension = len(documents[0].Embedding)
	}
	for _, doc := range documents {
		if len(doc.Embedding) != dimension {
			return fmt.Errorf("vector dimension mismatch for %q: got %d, store holds %d",
				doc.Record.FileName, len(doc.Embedding), dimension)
		}
	}

	s.dimension = dimension
	s.documents = append(s.documents, documents...)
	return nil
}

// Search ranks every stored document by cosine similarity to the query
// vector and returns at most k matches in descending score order. Ties
// keep insertion order. An empty store yields an empty slice.
func (s *VectorStore) Search(queryVector []float64, k int) []models.SimilarityMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.documents) == 0 || k <= 0 {
		return nil
	}

	matches := make([]models.SimilarityMatch, 0, len(s.documents))
	for _, doc := range s.documents {
		matches = append(matches, models.SimilarityMatch{
			Document: doc,
			Score:    cosineSimilarity(queryVector, doc.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

// Clear empties the store. The dimension resets with it, so a store can
// be rebuilt with a different embedder.
func (s *VectorStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = nil
	s.dimension = 0
}

// Len returns the number of stored documents.
func (s *VectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Dimension returns the pinned vector dimension, or 0 while empty.
func (s *VectorStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// cosineSimilarity computes dot(a,b) / (|a| * |b|). A zero-norm vector on
// either side yields 0.0 rather than dividing by zero.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
