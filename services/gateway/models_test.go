package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/smotta/flow-rag-api/models"
	"github.com/smotta/flow-rag-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticTokenSource struct {
	err error
}

func (s staticTokenSource) EnsureToken(ctx context.Context) (models.AccessToken, error) {
	if s.err != nil {
		return models.AccessToken{}, s.err
	}
	return models.NewAccessToken("test-token", 3600), nil
}

func newGatewayAgainst(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewService(Config{BaseURL: server.URL}, staticTokenSource{}, zap.NewNop())
}

func modelsHandler(t *testing.T, status int, body interface{}) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, modelsPath, r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("FlowAgent"))
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	})
}

func TestParseModelList(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantNames []string
		wantErr   bool
	}{
		{
			name:      "bare list of strings",
			body:      `["gpt-4o","gpt-4o-mini"]`,
			wantNames: []string{"gpt-4o", "gpt-4o-mini"},
		},
		{
			name:      "list of objects with name",
			body:      `[{"name":"gpt-4o","type":"chat"}]`,
			wantNames: []string{"gpt-4o"},
		},
		{
			name:      "alternative name keys",
			body:      `[{"id":"gpt-4o"},{"model":"gpt-4o-mini"},{"modelName":"gpt-4.1"},{"model_name":"m4"},{"identifier":"m5"},{"modelId":"m6"}]`,
			wantNames: []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1", "m4", "m5", "m6"},
		},
		{
			name:      "wrapped under models key",
			body:      `{"models":[{"name":"gpt-4o"}]}`,
			wantNames: []string{"gpt-4o"},
		},
		{
			name:      "wrapped under data key",
			body:      `{"data":["gpt-4o"]}`,
			wantNames: []string{"gpt-4o"},
		},
		{
			name:      "wrapped under items key",
			body:      `{"items":["gpt-4o"]}`,
			wantNames: []string{"gpt-4o"},
		},
		{
			name:    "object without recognized wrapper",
			body:    `{"unexpected":"shape"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			body:    `{{{`,
			wantErr: true,
		},
		{
			name:    "list without usable entries",
			body:    `[{"weight":3},42]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descriptors, err := parseModelList([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			names := make([]string, len(descriptors))
			for i, d := range descriptors {
				names[i] = d.Name
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestDescriptorFor(t *testing.T) {
	assert.Equal(t, models.ModelKindChat, descriptorFor("gpt-4o", "").Kind)
	assert.Equal(t, models.ModelKindEmbedding, descriptorFor("text-embedding-3-small", "").Kind)
	assert.Equal(t, models.ModelKindEmbedding, descriptorFor("custom-embed", "embedding").Kind)
	assert.Equal(t, models.ModelKindChat, descriptorFor("text-embedding-x", "chat").Kind)
}

func TestListModels_Discovery(t *testing.T) {
	svc := newGatewayAgainst(t, modelsHandler(t, http.StatusOK,
		[]map[string]string{{"name": "gpt-4o", "type": "chat"}, {"name": "text-embedding-3-small", "type": "embedding"}}))

	descriptors := svc.ListModels(context.Background())
	require.Len(t, descriptors, 2)
	assert.Equal(t, "gpt-4o", descriptors[0].Name)

	// Embedding models are excluded from chat candidates.
	assert.Equal(t, []string{"gpt-4o"}, svc.ChatModelNames(context.Background()))
}

func TestListModels_FallbackOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.Handler
	}{
		{name: "non-200 status", handler: modelsHandler(t, http.StatusUnauthorized, nil)},
		{name: "malformed body", handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		})},
		{name: "unexpected shape", handler: modelsHandler(t, http.StatusOK, map[string]string{"status": "ok"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newGatewayAgainst(t, tt.handler)

			descriptors := svc.ListModels(context.Background())
			assert.Equal(t, knownModels, descriptors)
		})
	}
}

func TestListModels_FallbackOnAuthFailure(t *testing.T) {
	server := httptest.NewServer(modelsHandler(t, http.StatusOK, []string{"gpt-4o"}))
	t.Cleanup(server.Close)

	svc := NewService(Config{BaseURL: server.URL},
		staticTokenSource{err: services.ErrAuthenticationFailed}, zap.NewNop())

	assert.Equal(t, knownModels, svc.ListModels(context.Background()))
}

func TestListModels_CachedAfterFirstFetch(t *testing.T) {
	var calls int32
	svc := newGatewayAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode([]string{"gpt-4o"})
	}))

	for i := 0; i < 3; i++ {
		svc.ListModels(context.Background())
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRefreshModels_InvalidatesCache(t *testing.T) {
	var calls int32
	svc := newGatewayAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			_ = json.NewEncoder(w).Encode([]string{"gpt-4o"})
			return
		}
		_ = json.NewEncoder(w).Encode([]string{"gpt-4o", "gpt-4.1"})
	}))

	require.Len(t, svc.ListModels(context.Background()), 1)

	refreshed := svc.RefreshModels(context.Background())
	assert.Len(t, refreshed, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSelectModel_Precedence(t *testing.T) {
	svc := newGatewayAgainst(t, modelsHandler(t, http.StatusOK, []string{"gpt-4o", "gpt-4o-mini"}))
	ctx := context.Background()

	t.Run("exact match", func(t *testing.T) {
		assert.Equal(t, "gpt-4o", svc.SelectModel(ctx, "gpt-4o"))
	})

	t.Run("partial match either direction", func(t *testing.T) {
		// "gpt-4o" also matches "GPT-4O-MINI-X" but the more specific
		// candidate must win regardless of discovery order.
		assert.Equal(t, "gpt-4o-mini", svc.SelectModel(ctx, "GPT-4O-MINI-X"))
		assert.Equal(t, "gpt-4o-mini", svc.SelectModel(ctx, "mini"))
		assert.Equal(t, "gpt-4o", svc.SelectModel(ctx, "4o"))
	})

	t.Run("no request falls to preference order", func(t *testing.T) {
		assert.Equal(t, "gpt-4o", svc.SelectModel(ctx, ""))
	})

	t.Run("unknown request falls to preference order", func(t *testing.T) {
		assert.Equal(t, "gpt-4o", svc.SelectModel(ctx, "claude-3-opus"))
	})
}

func TestSelectModel_NoPreferredAvailable(t *testing.T) {
	svc := newGatewayAgainst(t, modelsHandler(t, http.StatusOK, []string{"llama-2-7b", "mistral-7b"}))

	// None of the preference order is present, so the first discovered
	// model wins.
	assert.Equal(t, "llama-2-7b", svc.SelectModel(context.Background(), ""))
}

func TestSelectModel_EmptyListUsesDefault(t *testing.T) {
	svc := newGatewayAgainst(t, modelsHandler(t, http.StatusOK, []string{"text-embedding-3-small"}))

	// Only embedding models discovered leaves no chat candidates.
	assert.Equal(t, DefaultModel, svc.SelectModel(context.Background(), "unknown"))
}
