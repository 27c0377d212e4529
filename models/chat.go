package models

import "fmt"

// APIError is a normalized error returned by the Flow service. It keeps
// the HTTP status so callers can distinguish rejections from transport
// or schema failures (StatusCode is 0 for non-HTTP failures).
type APIError struct {
	StatusCode int    `json:"status_code,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("flow api error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("flow api error: %s", e.Message)
}

// GatewayResult is the normalized outcome of one generation request.
// Exactly one of Response (on success) or Err (on failure) is meaningful;
// ModelUsed is set in both cases.
type GatewayResult struct {
	Success   bool      `json:"success"`
	Response  string    `json:"response,omitempty"`
	ModelUsed string    `json:"model_used,omitempty"`
	Err       *APIError `json:"error,omitempty"`
}

// SuccessResult builds a successful GatewayResult.
func SuccessResult(response, modelUsed string) GatewayResult {
	return GatewayResult{Success: true, Response: response, ModelUsed: modelUsed}
}

// FailureResult builds a failed GatewayResult carrying a normalized error.
func FailureResult(err *APIError, modelUsed string) GatewayResult {
	return GatewayResult{Success: false, ModelUsed: modelUsed, Err: err}
}
