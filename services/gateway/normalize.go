package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/smotta/flow-rag-api/models"
)

// extractionRule pulls the answer text out of one known response shape.
// Rules are tried in priority order; the first non-empty extraction wins.
// New shapes are added to the table, not to control flow.
type extractionRule struct {
	name    string
	extract func(map[string]interface{}) string
}

var extractionRules = []extractionRule{
	{
		// OpenAI-style: choices[0].message.content, or choices[0].text.
		name: "choices",
		extract: func(data map[string]interface{}) string {
			choices, ok := data["choices"].([]interface{})
			if !ok || len(choices) == 0 {
				return ""
			}
			choice, ok := choices[0].(map[string]interface{})
			if !ok {
				return ""
			}
			if message, ok := choice["message"].(map[string]interface{}); ok {
				if content, ok := message["content"].(string); ok {
					return content
				}
			}
			if text, ok := choice["text"].(string); ok {
				return text
			}
			return ""
		},
	},
	{name: "response", extract: flatField("response")},
	{name: "output", extract: flatField("output")},
	{name: "text", extract: flatField("text")},
	{name: "content", extract: flatField("content")},
	{name: "result", extract: flatField("result")},
	{name: "generated_text", extract: flatField("generated_text")},
}

func flatField(key string) func(map[string]interface{}) string {
	return func(data map[string]interface{}) string {
		value, _ := data[key].(string)
		return value
	}
}

// extractResponseText normalizes a successful body into plain answer
// text. Returns false when no rule matches, which callers report as a
// parse failure rather than a crash.
func extractResponseText(body []byte) (string, bool) {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", false
	}

	for _, rule := range extractionRules {
		if text := rule.extract(data); text != "" {
			return text, true
		}
	}
	return "", false
}

// parseErrorBody normalizes a non-200 body into an APIError. It tries the
// common error envelopes and falls back to the raw body text.
func parseErrorBody(statusCode int, body []byte) *models.APIError {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}

	if err := json.Unmarshal(body, &envelope); err == nil {
		message := envelope.Error.Message
		code := envelope.Error.Code
		if code == "" {
			code = envelope.Error.Type
		}
		if message == "" {
			message = envelope.Message
		}
		if message == "" {
			message = envelope.Detail
		}
		if message != "" {
			return &models.APIError{StatusCode: statusCode, Code: code, Message: message}
		}
	}

	return &models.APIError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, sample(body, 200)),
	}
}
