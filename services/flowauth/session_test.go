package flowauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/smotta/flow-rag-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTokenServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Session) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	session := NewSession(Config{
		BaseURL:      server.URL,
		Tenant:       "test-tenant",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AppToAccess:  "llm-api",
	}, zap.NewNop())
	return server, session
}

func TestSession_Authenticate(t *testing.T) {
	_, session := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, tokenPath, r.URL.Path)
		require.Equal(t, "test-tenant", r.Header.Get("FlowTenant"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "client-id", body["clientId"])
		require.Equal(t, "client-secret", body["clientSecret"])
		require.Equal(t, "llm-api", body["appToAccess"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-123",
			"expires_in":   3600,
		})
	})

	assert.True(t, session.Authenticate(context.Background()))

	token, err := session.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token.Token)
}

func TestSession_AuthenticateFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
		{
			name: "missing access_token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]int{"expires_in": 3600})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, session := newTokenServer(t, tt.handler)
			assert.False(t, session.Authenticate(context.Background()))
		})
	}
}

func TestSession_AuthenticateTransportFailure(t *testing.T) {
	server, session := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	assert.False(t, session.Authenticate(context.Background()))
}

func TestSession_EnsureTokenCachesToken(t *testing.T) {
	var calls int32
	_, session := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-cached",
			"expires_in":   3600,
		})
	})

	for i := 0; i < 3; i++ {
		token, err := session.EnsureToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-cached", token.Token)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSession_EnsureTokenRefreshesExpired(t *testing.T) {
	var calls int32
	_, session := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": map[int32]string{1: "tok-first", 2: "tok-second"}[n],
			// Zero TTL makes the token immediately invalid.
			"expires_in": 0,
		})
	})

	_, err := session.EnsureToken(context.Background())
	require.NoError(t, err)
	_, err = session.EnsureToken(context.Background())
	require.NoError(t, err)

	// Each call found an expired token and re-authenticated first.
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSession_EnsureTokenAuthenticationError(t *testing.T) {
	_, session := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := session.EnsureToken(context.Background())
	require.Error(t, err)
	assert.True(t, services.IsAuthenticationError(err))
}

func TestSession_CheckValidity(t *testing.T) {
	var healthStatus atomic.Int32
	healthStatus.Store(http.StatusOK)

	_, session := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tokenPath:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "tok-valid",
				"expires_in":   3600,
			})
		case healthPath:
			require.Equal(t, "Bearer tok-valid", r.Header.Get("Authorization"))
			w.WriteHeader(int(healthStatus.Load()))
		}
	})

	t.Run("no cached token", func(t *testing.T) {
		assert.False(t, session.CheckValidity(context.Background()))
	})

	require.True(t, session.Authenticate(context.Background()))

	t.Run("valid token", func(t *testing.T) {
		assert.True(t, session.CheckValidity(context.Background()))
	})

	t.Run("probe failure keeps cache", func(t *testing.T) {
		healthStatus.Store(http.StatusUnauthorized)
		assert.False(t, session.CheckValidity(context.Background()))

		// Cache intact: EnsureToken still returns it without a new exchange.
		token, err := session.EnsureToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-valid", token.Token)
	})
}

func TestSession_Invalidate(t *testing.T) {
	var calls int32
	_, session := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-x",
			"expires_in":   3600,
		})
	})

	_, err := session.EnsureToken(context.Background())
	require.NoError(t, err)

	session.Invalidate()

	_, err = session.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
