package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/smotta/flow-rag-api/models"
	"go.uber.org/zap"
)

const modelsPath = "/ai-orchestration-api/v1/models"

// DefaultModel is the absolute fallback when even the known-model set is
// unusable.
const DefaultModel = "gpt-4o"

// preferredModels is the selection preference order, most-capable general
// chat models first.
var preferredModels = []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1"}

// knownModels is the hardcoded fallback set used when discovery is
// unavailable, so the gateway keeps working without the listing endpoint.
var knownModels = []models.ModelDescriptor{
	{Name: "gpt-4o", Kind: models.ModelKindChat},
	{Name: "gpt-4o-mini", Kind: models.ModelKindChat},
	{Name: "gpt-4.1", Kind: models.ModelKindChat},
	{Name: "text-embedding-ada-002", Kind: models.ModelKindEmbedding},
	{Name: "text-embedding-3-small", Kind: models.ModelKindEmbedding},
	{Name: "text-embedding-3-large", Kind: models.ModelKindEmbedding},
}

// modelNameKeys are the alternative field names under which different
// service versions report a model's identifier.
var modelNameKeys = []string{"name", "id", "model", "modelName", "model_name", "identifier", "modelId"}

// modelListKeys are the wrapper keys under which a dict-shaped listing
// response may nest the actual model list.
var modelListKeys = []string{"models", "data", "items"}

type modelCache struct {
	mu      sync.Mutex
	models  []models.ModelDescriptor
	fetched bool
}

// ListModels returns the available models, fetching the remote listing on
// first use. Any discovery failure (auth, transport, non-200, malformed
// or unexpected payload) falls back to the hardcoded known-model set; the
// outcome is cached either way until RefreshModels.
func (s *Service) ListModels(ctx context.Context) []models.ModelDescriptor {
	s.modelCache.mu.Lock()
	defer s.modelCache.mu.Unlock()

	if s.modelCache.fetched {
		return append([]models.ModelDescriptor(nil), s.modelCache.models...)
	}

	discovered, err := s.fetchModels(ctx)
	if err != nil {
		s.logger.Warn("model discovery failed, using known models", zap.Error(err))
		discovered = append([]models.ModelDescriptor(nil), knownModels...)
	}

	s.modelCache.models = discovered
	s.modelCache.fetched = true
	return append([]models.ModelDescriptor(nil), discovered...)
}

// RefreshModels invalidates the cache and re-runs discovery.
func (s *Service) RefreshModels(ctx context.Context) []models.ModelDescriptor {
	s.modelCache.mu.Lock()
	s.modelCache.fetched = false
	s.modelCache.models = nil
	s.modelCache.mu.Unlock()

	return s.ListModels(ctx)
}

// ChatModelNames returns the names of models usable for chat completions.
func (s *Service) ChatModelNames(ctx context.Context) []string {
	descriptors := s.ListModels(ctx)
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		if d.IsChat() {
			names = append(names, d.Name)
		}
	}
	return names
}

// SelectModel resolves an optional requested model name against the
// available chat models. Precedence, first match wins:
//  1. exact case-sensitive match
//  2. case-insensitive substring match, either direction; the longest
//     matching name wins
//  3. first preference-order model present in the list
//  4. first available model
//  5. the hardcoded default
func (s *Service) SelectModel(ctx context.Context, requested string) string {
	available := s.ChatModelNames(ctx)

	if requested != "" {
		for _, name := range available {
			if name == requested {
				s.logger.Debug("using exact model match", zap.String("model", name))
				return name
			}
		}

		// The most specific partial match wins, measured by the length
		// of the shared substring: "gpt-4o-mini-x" resolves to
		// "gpt-4o-mini", not "gpt-4o". Ties keep discovery order.
		requestedLower := strings.ToLower(requested)
		var partial string
		best := 0
		for _, name := range available {
			nameLower := strings.ToLower(name)
			overlap := 0
			switch {
			case strings.Contains(nameLower, requestedLower):
				overlap = len(requestedLower)
			case strings.Contains(requestedLower, nameLower):
				overlap = len(nameLower)
			}
			if overlap > best {
				best = overlap
				partial = name
			}
		}
		if partial != "" {
			s.logger.Debug("using partial model match",
				zap.String("model", partial),
				zap.String("requested", requested))
			return partial
		}

		s.logger.Warn("requested model not available",
			zap.String("requested", requested),
			zap.Strings("available", available))
	}

	for _, preferred := range preferredModels {
		for _, name := range available {
			if name == preferred {
				return preferred
			}
		}
	}

	if len(available) > 0 {
		return available[0]
	}
	return DefaultModel
}

func (s *Service) fetchModels(ctx context.Context) ([]models.ModelDescriptor, error) {
	token, err := s.session.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+modelsPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.Token)
	req.Header.Set("FlowAgent", s.config.AgentName)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.APIError{
			StatusCode: resp.StatusCode,
			Code:       "models_listing_failed",
			Message:    "model listing returned non-200 status",
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	descriptors, err := parseModelList(body)
	if err != nil {
		return nil, err
	}

	s.logger.Info("discovered models", zap.Int("count", len(descriptors)))
	return descriptors, nil
}

// parseModelList accepts either a bare JSON array of model entries or an
// object wrapping such an array under one of modelListKeys. Entries may
// be plain strings or objects carrying the name under any of
// modelNameKeys.
func parseModelList(body []byte) ([]models.ModelDescriptor, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, &models.APIError{Code: "malformed_models_response", Message: err.Error()}
		}
		found := false
		for _, key := range modelListKeys {
			raw, ok := wrapper[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &entries); err == nil {
				found = true
				break
			}
		}
		if !found {
			return nil, &models.APIError{
				Code:    "unexpected_models_shape",
				Message: "models response is neither a list nor a recognized wrapper",
			}
		}
	}

	descriptors := make([]models.ModelDescriptor, 0, len(entries))
	for _, entry := range entries {
		if descriptor, ok := parseModelEntry(entry); ok {
			descriptors = append(descriptors, descriptor)
		}
	}
	if len(descriptors) == 0 {
		return nil, &models.APIError{
			Code:    "empty_models_response",
			Message: "models response contained no usable entries",
		}
	}
	return descriptors, nil
}

func parseModelEntry(entry json.RawMessage) (models.ModelDescriptor, bool) {
	var name string
	if err := json.Unmarshal(entry, &name); err == nil && name != "" {
		return descriptorFor(name, ""), true
	}

	var object map[string]interface{}
	if err := json.Unmarshal(entry, &object); err != nil {
		return models.ModelDescriptor{}, false
	}
	kind, _ := object["type"].(string)
	for _, key := range modelNameKeys {
		if value, ok := object[key].(string); ok && value != "" {
			return descriptorFor(value, kind), true
		}
	}
	return models.ModelDescriptor{}, false
}

func descriptorFor(name, kind string) models.ModelDescriptor {
	switch kind {
	case string(models.ModelKindChat), string(models.ModelKindEmbedding):
		return models.ModelDescriptor{Name: name, Kind: models.ModelKind(kind)}
	}
	if strings.HasPrefix(name, "text-embedding") {
		return models.ModelDescriptor{Name: name, Kind: models.ModelKindEmbedding}
	}
	return models.ModelDescriptor{Name: name, Kind: models.ModelKindChat}
}
