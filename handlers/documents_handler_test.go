package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smotta/flow-rag-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLoader struct {
	records []models.DocumentRecord
}

func (s stubLoader) Load() []models.DocumentRecord {
	return s.records
}

type stubIndex struct {
	initializeOK bool
	initialized  bool
	stats        models.RetrievalStats
}

func (s *stubIndex) Initialize(documents []models.DocumentRecord) bool {
	s.initialized = s.initializeOK
	return s.initializeOK
}

func (s *stubIndex) Stats() models.RetrievalStats {
	return s.stats
}

func TestHandleLoadDocuments(t *testing.T) {
	logger := zap.NewNop()

	t.Run("successful load", func(t *testing.T) {
		loader := stubLoader{records: []models.DocumentRecord{
			{FileName: "sky.txt", Content: "The sky is blue."},
			{FileName: "grass.txt", Content: "Grass is green."},
		}}
		index := &stubIndex{
			initializeOK: true,
			stats:        models.RetrievalStats{Initialized: true, DocumentCount: 2, EmbeddingDimension: 384},
		}
		handler := NewDocumentsHandler(loader, index, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/load", nil)
		w := httptest.NewRecorder()

		handler.HandleLoadDocuments(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, index.initialized)

		var response LoadResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.True(t, response.Success)
		assert.Equal(t, 2, response.DocumentsLoaded)
	})

	t.Run("empty folder", func(t *testing.T) {
		handler := NewDocumentsHandler(stubLoader{}, &stubIndex{}, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/load", nil)
		w := httptest.NewRecorder()

		handler.HandleLoadDocuments(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response LoadResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.False(t, response.Success)
		assert.Equal(t, 0, response.DocumentsLoaded)
	})

	t.Run("indexing failure", func(t *testing.T) {
		loader := stubLoader{records: []models.DocumentRecord{{FileName: "sky.txt"}}}
		handler := NewDocumentsHandler(loader, &stubIndex{initializeOK: false}, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/load", nil)
		w := httptest.NewRecorder()

		handler.HandleLoadDocuments(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandleDocumentStats(t *testing.T) {
	index := &stubIndex{stats: models.RetrievalStats{
		Initialized:        true,
		DocumentCount:      7,
		EmbeddingDimension: 384,
	}}
	handler := NewDocumentsHandler(stubLoader{}, index, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/stats", nil)
	w := httptest.NewRecorder()

	handler.HandleDocumentStats(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var stats models.RetrievalStats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.True(t, stats.Initialized)
	assert.Equal(t, 7, stats.DocumentCount)
	assert.Equal(t, 384, stats.EmbeddingDimension)
}
