package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smotta/flow-rag-api/models"
	"github.com/smotta/flow-rag-api/services/retrieval"
	"go.uber.org/zap"
)

const (
	defaultAgentName = "llm-chatbot-rag"
	defaultTimeout   = 30 * time.Second

	systemPrompt = "You are a helpful assistant that answers questions based on the provided context."
)

// chatEndpointVariants are the candidate chat-completion paths, in order.
// Different Flow deployments expose different subsets of these; a 404 on
// one variant means "try the next", any other failure status means the
// endpoint exists and rejected the request.
var chatEndpointVariants = []string{
	"/ai-orchestration-api/v1/openai/chat/completions",
	"/ai-orchestration-api/v1/chat/completions",
	"/ai-orchestration-api/v1/openai/completions",
}

// TokenSource supplies a valid bearer token, re-authenticating as needed.
// Satisfied by *flowauth.Session.
type TokenSource interface {
	EnsureToken(ctx context.Context) (models.AccessToken, error)
}

// Config holds the Flow orchestration endpoint settings.
type Config struct {
	BaseURL   string
	AgentName string
	Timeout   time.Duration
}

// Service dispatches chat requests to the Flow LLM API, handling model
// discovery, model selection, endpoint-variant fallback and response
// normalization.
type Service struct {
	config     Config
	session    TokenSource
	httpClient *http.Client
	logger     *zap.Logger

	modelCache *modelCache
}

// NewService creates a gateway service.
func NewService(config Config, session TokenSource, logger *zap.Logger) *Service {
	if config.AgentName == "" {
		config.AgentName = defaultAgentName
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	return &Service{
		config:  config,
		session: session,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:     logger,
		modelCache: &modelCache{},
	}
}

// GenerateRequest is one chat generation request. Context carries the
// formatted retrieval block (or the no-context sentinel); Model is an
// optional caller preference resolved through SelectModel.
type GenerateRequest struct {
	Message     string
	Context     string
	Model       string
	MaxTokens   int
	Temperature float64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// Generate builds a prompt from the request, obtains a token and tries
// each chat endpoint variant in order. Per-endpoint policy: 200 parses
// and returns; 404 and transport failures move on to the next variant;
// any other status is a terminal rejection returned immediately. When
// every variant is exhausted a single aggregate failure is returned.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) models.GatewayResult {
	if req.MaxTokens <= 0 {
		req.MaxTokens = 1000
	}
	if req.Temperature == 0 {
		req.Temperature = 0.7
	}

	selectedModel := s.SelectModel(ctx, req.Model)
	prompt := buildPrompt(req.Message, req.Context)

	token, err := s.session.EnsureToken(ctx)
	if err != nil {
		s.logger.Error("authentication failed before dispatch", zap.Error(err))
		return models.FailureResult(&models.APIError{
			Code:    "authentication_failed",
			Message: "Failed to authenticate with Flow API",
		}, selectedModel)
	}

	body, err := json.Marshal(chatPayload{
		Model: selectedModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return models.FailureResult(&models.APIError{
			Code:    "marshal_error",
			Message: err.Error(),
		}, selectedModel)
	}

	for _, variant := range chatEndpointVariants {
		url := s.config.BaseURL + variant
		s.logger.Debug("trying chat endpoint variant",
			zap.String("endpoint", variant),
			zap.String("model", selectedModel))

		resp, err := s.post(ctx, url, token.Token, body)
		if err != nil {
			if ctx.Err() != nil {
				return models.FailureResult(&models.APIError{
					Code:    "request_cancelled",
					Message: ctx.Err().Error(),
				}, selectedModel)
			}
			// Transport failure; the next variant may live on a
			// different code path server-side.
			s.logger.Warn("chat endpoint variant unreachable",
				zap.String("endpoint", variant),
				zap.Error(err))
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			s.logger.Warn("failed to read response body",
				zap.String("endpoint", variant),
				zap.Error(readErr))
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return s.parseSuccessResponse(respBody, selectedModel)

		case resp.StatusCode == http.StatusNotFound:
			// This variant does not exist on this deployment.
			s.logger.Debug("endpoint variant not found, trying next",
				zap.String("endpoint", variant))
			continue

		default:
			// The endpoint exists but rejected the request; trying the
			// remaining variants would only repeat the rejection.
			if resp.StatusCode == http.StatusConflict {
				s.logModelHints(respBody)
			}
			s.logger.Warn("chat request rejected",
				zap.String("endpoint", variant),
				zap.Int("status_code", resp.StatusCode))
			return models.FailureResult(parseErrorBody(resp.StatusCode, respBody), selectedModel)
		}
	}

	return models.FailureResult(&models.APIError{
		Code:    "all_endpoints_failed",
		Message: "All API endpoints failed. The LLM service may be unavailable or the model may not be supported.",
	}, selectedModel)
}

// HealthCheck sends a minimal chat request to the primary variant. The
// service counts as healthy when it answers at all with an expected
// status: 200, or a validation rejection (400/409), which still proves
// the endpoint is reachable and parsing requests.
func (s *Service) HealthCheck(ctx context.Context) bool {
	token, err := s.session.EnsureToken(ctx)
	if err != nil {
		return false
	}

	body, _ := json.Marshal(chatPayload{
		Model:     DefaultModel,
		Messages:  []chatMessage{{Role: "user", Content: "test"}},
		MaxTokens: 1,
	})

	resp, err := s.post(ctx, s.config.BaseURL+chatEndpointVariants[0], token.Token, body)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusBadRequest, http.StatusConflict:
		return true
	}
	return false
}

func (s *Service) post(ctx context.Context, url, token string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("FlowAgent", s.config.AgentName)
	return s.httpClient.Do(req)
}

func (s *Service) parseSuccessResponse(body []byte, modelUsed string) models.GatewayResult {
	text, ok := extractResponseText(body)
	if !ok {
		s.logger.Warn("could not extract response text",
			zap.ByteString("body_sample", sample(body, 300)))
		return models.FailureResult(&models.APIError{
			StatusCode: http.StatusOK,
			Code:       "unparseable_response",
			Message:    "Could not extract response text from API response",
		}, modelUsed)
	}
	return models.SuccessResult(strings.TrimSpace(text), modelUsed)
}

// logModelHints scans a 409 body for model names the service advertises
// in its schema errors. Best-effort debugging aid only, never behavior.
func (s *Service) logModelHints(body []byte) {
	text := string(body)
	if strings.Contains(text, "unionErrors") && strings.Contains(text, "options") {
		s.logger.Info("schema rejection carries model options",
			zap.ByteString("body_sample", sample(body, 300)))
	}
}

func buildPrompt(message, context string) string {
	if context != "" && strings.TrimSpace(context) != retrieval.NoContextSentinel {
		return "Based on the following context, please answer the user's question:\n\n" +
			"Context:\n" + context + "\n\n" +
			"User Question: " + message + "\n\n" +
			"Please provide a helpful and accurate answer based on the context provided. " +
			"If the context doesn't contain enough information to answer the question, please say so."
	}
	return "User Question: " + message + "\n\n" +
		"Please provide a helpful answer. Note that no specific context documents were found for this question."
}

func sample(body []byte, n int) []byte {
	if len(body) <= n {
		return body
	}
	return body[:n]
}
