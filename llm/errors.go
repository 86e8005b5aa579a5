package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrCannotBindNonStringContent is returned when a variable is bound into
// content that is not text.
var ErrCannotBindNonStringContent = errors.New("cannot bind variable into non-string content")

// Error represents a provider-neutral LLM error.
type Error struct {
	Type        ErrorType
	Message     string
	Retryable   bool
	RetryAfter  *time.Duration
	StatusCode  int
	Body        string // Raw response body for completion errors
	ProviderErr error  // Original provider-specific error
}

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypeConstruction  ErrorType = "construction"
	ErrorTypeAuth          ErrorType = "auth"
	ErrorTypeRequest       ErrorType = "request"
	ErrorTypeCompletion    ErrorType = "completion"
	ErrorTypeSerialization ErrorType = "serialization"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeWorkflow      ErrorType = "workflow"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Body != "" {
		msg = msg + ": " + e.Body
	}
	if e.ProviderErr != nil {
		return msg + ": " + e.ProviderErr.Error()
	}
	return msg
}

// Unwrap returns the underlying provider error.
func (e *Error) Unwrap() error {
	return e.ProviderErr
}

func isType(err error, t ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == t
	}
	return false
}

// IsRateLimitError checks if an error is a rate limit error.
func IsRateLimitError(err error) bool {
	return isType(err, ErrorTypeRateLimit)
}

// IsCompletionError checks if an error came from a non-2xx provider response.
// Rate limit errors are completion errors too.
func IsCompletionError(err error) bool {
	return isType(err, ErrorTypeCompletion) || isType(err, ErrorTypeRateLimit)
}

// IsRequestError checks if an error is a transport-level failure.
func IsRequestError(err error) bool {
	return isType(err, ErrorTypeRequest) || isType(err, ErrorTypeTimeout)
}

// IsAuthError checks if an error is an authentication failure.
func IsAuthError(err error) bool {
	return isType(err, ErrorTypeAuth)
}

// IsSerializationError checks if an error is a decode or encode failure.
func IsSerializationError(err error) bool {
	return isType(err, ErrorTypeSerialization)
}

// IsValidationError checks if an error is a structured-output or empty response failure.
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsWorkflowError checks if an error comes from task list or workflow
// scheduling.
func IsWorkflowError(err error) bool {
	return isType(err, ErrorTypeWorkflow)
}

// IsRetryableError checks if an error is retryable.
func IsRetryableError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.StatusCode
	}
	return 0
}

// ExtractRetryAfter extracts the retry-after duration from an error.
func ExtractRetryAfter(err error) *time.Duration {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.RetryAfter
	}
	return nil
}

// NewCompletionError creates an error for a non-2xx provider response.
// The raw body is preserved. 429 responses are classified as rate limits.
func NewCompletionError(statusCode int, body string, retryAfter *time.Duration) *Error {
	if statusCode == 429 {
		return &Error{
			Type:       ErrorTypeRateLimit,
			Message:    "rate limit exceeded",
			StatusCode: statusCode,
			Body:       body,
			RetryAfter: retryAfter,
		}
	}
	return &Error{
		Type:       ErrorTypeCompletion,
		Message:    "completion request failed",
		StatusCode: statusCode,
		Body:       body,
	}
}

// NewRequestError creates a transport error. Transport errors are retryable.
func NewRequestError(message string, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeRequest,
		Message:     message,
		Retryable:   true,
		ProviderErr: providerErr,
	}
}

// NewTimeoutError creates a transport timeout error.
func NewTimeoutError(message string, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeTimeout,
		Message:     message,
		Retryable:   true,
		ProviderErr: providerErr,
	}
}

// NewAuthError creates an authentication error.
func NewAuthError(message string, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeAuth,
		Message:     message,
		ProviderErr: providerErr,
	}
}

// NewSerializationError creates an encode/decode error.
func NewSerializationError(message string, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeSerialization,
		Message:     message,
		ProviderErr: providerErr,
	}
}

// NewValidationError creates a validation error. The workflow may retry these.
func NewValidationError(message string, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeValidation,
		Message:     message,
		ProviderErr: providerErr,
	}
}

// NewConstructionError creates an error for an invalid object at creation time.
func NewConstructionError(message string, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeConstruction,
		Message:     message,
		ProviderErr: providerErr,
	}
}

// NewWorkflowError creates a task list or scheduling error.
func NewWorkflowError(message string) *Error {
	return &Error{
		Type:    ErrorTypeWorkflow,
		Message: message,
	}
}
