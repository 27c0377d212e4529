package flowauth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/smotta/flow-rag-api/models"
	"github.com/smotta/flow-rag-api/services"
	"go.uber.org/zap"
)

const (
	tokenPath  = "/auth-engine-api/v1/api-key/token"
	healthPath = "/auth-engine-api/v1/health"

	defaultTimeout = 15 * time.Second
)

// Config holds the credentials and endpoint for the Flow auth engine.
type Config struct {
	BaseURL      string
	Tenant       string
	ClientID     string
	ClientSecret string
	AppToAccess  string
	Timeout      time.Duration
}

// Session acquires and caches a bearer token from the Flow token
// endpoint. The token is replaced wholesale on re-authentication. Two
// concurrent callers both finding an expired token may both
// re-authenticate; the exchange is idempotent so the redundant call is
// harmless.
type Session struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.Mutex
	token models.AccessToken
}

// NewSession creates an unauthenticated session.
func NewSession(config Config, logger *zap.Logger) *Session {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	return &Session{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

type tokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	AppToAccess  string `json:"appToAccess"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate exchanges the configured credentials for a fresh token.
// Any transport failure, non-200 status or malformed payload leaves the
// session unauthenticated and returns false; nothing is raised past this
// boundary.
func (s *Session) Authenticate(ctx context.Context) bool {
	body, err := json.Marshal(tokenRequest{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		AppToAccess:  s.config.AppToAccess,
	})
	if err != nil {
		s.logger.Error("failed to marshal token request", zap.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.BaseURL+tokenPath, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("failed to build token request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("FlowTenant", s.config.Tenant)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("token endpoint unreachable", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("authentication rejected",
			zap.Int("status_code", resp.StatusCode))
		return false
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.Warn("malformed token response", zap.Error(err))
		return false
	}
	if payload.AccessToken == "" {
		s.logger.Warn("token response missing access_token")
		return false
	}

	s.mu.Lock()
	s.token = models.NewAccessToken(payload.AccessToken, payload.ExpiresIn)
	s.mu.Unlock()

	s.logger.Info("authenticated with flow api",
		zap.Duration("token_ttl", time.Duration(payload.ExpiresIn)*time.Second))
	return true
}

// EnsureToken returns the cached token when it is still valid; otherwise
// it re-authenticates first. An expired token is never handed out without
// a re-authentication attempt. Failure is an authentication error,
// terminal for the in-flight request.
func (s *Session) EnsureToken(ctx context.Context) (models.AccessToken, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token.Valid() {
		return token, nil
	}

	if !s.Authenticate(ctx) {
		return models.AccessToken{}, services.ErrAuthenticationFailed
	}

	s.mu.Lock()
	token = s.token
	s.mu.Unlock()
	return token, nil
}

// CheckValidity probes the auth health endpoint with the cached token.
// A negative result does not clear the cache; callers decide whether to
// force re-authentication.
func (s *Session) CheckValidity(ctx context.Context) bool {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token.Token == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.config.BaseURL+healthPath, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug("token validity probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Invalidate drops the cached token, forcing the next EnsureToken call to
// re-authenticate.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.token = models.AccessToken{}
	s.mu.Unlock()
}
