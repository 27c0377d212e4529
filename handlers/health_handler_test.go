package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubFlowProber struct {
	healthy bool
}

func (s stubFlowProber) HealthCheck(ctx context.Context) bool {
	return s.healthy
}

type stubAuditProber struct {
	err error
}

func (s stubAuditProber) HealthCheck(ctx context.Context) error {
	return s.err
}

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var envelope struct {
		Data HealthResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	return envelope.Data
}

func TestHandleHealth(t *testing.T) {
	handler := NewHealthHandler(nil, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.HandleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	health := decodeHealth(t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.NotEmpty(t, health.Timestamp)
}

func TestHandleReadiness(t *testing.T) {
	logger := zap.NewNop()

	t.Run("healthy without audit database", func(t *testing.T) {
		handler := NewHealthHandler(stubFlowProber{healthy: true}, nil, logger)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		health := decodeHealth(t, w)
		assert.Equal(t, "healthy", health.Status)
		assert.Equal(t, "healthy", health.Checks["flow_api"])
		assert.NotContains(t, health.Checks, "audit_database")
	})

	t.Run("healthy with audit database", func(t *testing.T) {
		handler := NewHealthHandler(stubFlowProber{healthy: true}, stubAuditProber{}, logger)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		health := decodeHealth(t, w)
		assert.Equal(t, "healthy", health.Checks["audit_database"])
	})

	t.Run("unhealthy when flow api is down", func(t *testing.T) {
		handler := NewHealthHandler(stubFlowProber{healthy: false}, nil, logger)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		health := decodeHealth(t, w)
		assert.Equal(t, "unhealthy", health.Status)
		assert.Equal(t, "unhealthy", health.Checks["flow_api"])
	})

	t.Run("unhealthy when audit database is down", func(t *testing.T) {
		handler := NewHealthHandler(stubFlowProber{healthy: true}, stubAuditProber{err: assert.AnError}, logger)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		health := decodeHealth(t, w)
		assert.Equal(t, "unhealthy", health.Checks["audit_database"])
	})
}
