package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	// ErrorTypeAuthentication covers rejected credentials or an
	// unreachable token endpoint. Terminal for the in-flight request.
	ErrorTypeAuthentication ErrorType = "authentication"
	// ErrorTypeTransport covers network failures talking to any remote
	// endpoint. Recovered locally by trying the next endpoint variant.
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeNotFoundVariant marks a 404 on a candidate request path.
	// Internal only; silently skipped during dispatch.
	ErrorTypeNotFoundVariant ErrorType = "not_found_variant"
	// ErrorTypeClientRejection covers 4xx (other than 404) and 5xx
	// responses: the endpoint exists but rejected the request.
	ErrorTypeClientRejection ErrorType = "client_rejection"
	// ErrorTypeSchema marks a response body that cannot be normalized.
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeEmptyCorpus marks retrieval against an uninitialized or
	// empty corpus. Retrieval degrades to empty context, never fails.
	ErrorTypeEmptyCorpus ErrorType = "empty_corpus"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeInternal    ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	ErrAuthenticationFailed = NewDomainError(ErrorTypeAuthentication, "authentication with flow api failed", nil)
	ErrTokenEndpointDown    = NewDomainError(ErrorTypeAuthentication, "token endpoint unreachable", nil)

	ErrAllVariantsFailed = NewDomainError(ErrorTypeTransport, "all endpoint variants failed", nil)

	ErrResponseNotParseable = NewDomainError(ErrorTypeSchema, "could not extract response text from api response", nil)

	ErrCorpusNotInitialized = NewDomainError(ErrorTypeEmptyCorpus, "retrieval requested before corpus initialization", nil)

	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrEmptyMessage = NewDomainError(ErrorTypeValidation, "message cannot be empty", nil)

	ErrInternal = NewDomainError(ErrorTypeInternal, "internal error", nil)
)

// Error type checking helper functions

// IsAuthenticationError checks if an error is an authentication error
func IsAuthenticationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeAuthentication
	}
	return false
}

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeTransport
	}
	return false
}

// IsClientRejectionError checks if an error is a client rejection error
func IsClientRejectionError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeClientRejection
	}
	return false
}

// IsSchemaError checks if an error is a schema error
func IsSchemaError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeSchema
	}
	return false
}

// IsEmptyCorpusError checks if an error is an empty corpus error
func IsEmptyCorpusError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeEmptyCorpus
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapTransport wraps an error as a transport error
func WrapTransport(message string, err error) error {
	return NewDomainError(ErrorTypeTransport, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
