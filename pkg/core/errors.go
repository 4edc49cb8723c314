package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of a client error.
type ErrorType int

// Error type constants categorize errors for proper handling and retry logic.
const (
	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeConfig indicates invalid static configuration.
	ErrorTypeConfig
	// ErrorTypeAuth indicates missing or invalid credentials, or a signing failure.
	ErrorTypeAuth
	// ErrorTypeValidation indicates missing or malformed caller parameters.
	ErrorTypeValidation
	// ErrorTypeNetwork indicates a transport-level connectivity failure.
	ErrorTypeNetwork
	// ErrorTypeTimeout indicates the request exceeded its deadline.
	ErrorTypeTimeout
	// ErrorTypeRateLimit indicates the exchange rejected the request for rate limiting (429/418).
	ErrorTypeRateLimit
	// ErrorTypeAPIResponse indicates a non-2xx response from the exchange.
	ErrorTypeAPIResponse
	// ErrorTypeWebSocket indicates a stream-level failure.
	ErrorTypeWebSocket
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"UNKNOWN",
		"CONFIG",
		"AUTH",
		"VALIDATION",
		"NETWORK",
		"TIMEOUT",
		"RATE_LIMIT",
		"API_RESPONSE",
		"WEBSOCKET",
	}[t]
}

// Sentinel errors for common error conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
	// ErrNotConnected is returned when the stream connection is not open.
	ErrNotConnected = errors.New("websocket not connected")
	// ErrNoCredentials is returned when a signed call is attempted without credentials.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrCircuitBreakerOpen is returned when the circuit breaker rejects a call.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	// ErrTooManyStreams is returned when a subscribe would exceed the stream ceiling.
	ErrTooManyStreams = errors.New("subscription limit exceeded")
	// ErrRequestTimeout is returned when a correlated stream request gets no reply in time.
	ErrRequestTimeout = errors.New("request timed out")
	// ErrRateLimited is returned when the local rate limiter denies a non-blocking request.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ClientError is the structured error type every public operation can
// reject with. The Type field routes retry and handling decisions.
type ClientError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType `json:"type"`
	// StatusCode is the HTTP status code, when the error came from a response.
	StatusCode int `json:"status_code,omitempty"`
	// Code is the exchange-specific error code, when present in the body.
	Code string `json:"code,omitempty"`
	// Message is the human-readable error description.
	Message string `json:"message"`
	// Field names the offending parameter for validation errors.
	Field string `json:"field,omitempty"`
	// RetryAfter carries the server-advertised backoff for rate-limit errors.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	// CloseCode is the websocket close code for stream errors.
	CloseCode int `json:"close_code,omitempty"`
	// Err is the wrapped underlying cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface for ClientError.
func (e *ClientError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field %q)", e.Type, e.Message, e.Field)
	case e.Code != "":
		return fmt.Sprintf("%s (%d/%s): %s", e.Type, e.StatusCode, e.Code, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s (%d): %s", e.Type, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
}

// Unwrap returns the wrapped cause for errors.Is/errors.As chains.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewConfigError creates an error for invalid static configuration.
func NewConfigError(message string, err error) *ClientError {
	return &ClientError{Type: ErrorTypeConfig, Message: message, Err: err}
}

// NewAuthError creates an error for credential or signing failures.
func NewAuthError(message string, err error) *ClientError {
	return &ClientError{Type: ErrorTypeAuth, Message: message, Err: err}
}

// NewValidationError creates an error for a missing or malformed parameter.
// The field argument names the offending parameter.
func NewValidationError(field, message string) *ClientError {
	return &ClientError{Type: ErrorTypeValidation, Message: message, Field: field}
}

// NewNetworkError creates an error for a transport-level failure.
func NewNetworkError(message string, err error) *ClientError {
	return &ClientError{Type: ErrorTypeNetwork, Message: message, Err: err}
}

// NewTimeoutError creates an error for a request that exceeded its deadline.
func NewTimeoutError(message string, err error) *ClientError {
	return &ClientError{Type: ErrorTypeTimeout, Message: message, Err: err}
}

// NewAPIError creates an error for a non-2xx exchange response.
func NewAPIError(statusCode int, code, message string) *ClientError {
	return &ClientError{Type: ErrorTypeAPIResponse, StatusCode: statusCode, Code: code, Message: message}
}

// NewRateLimitError creates an error for a 429/418 response.
// retryAfter is zero when the server did not advertise a backoff.
func NewRateLimitError(statusCode int, retryAfter time.Duration, message string) *ClientError {
	return &ClientError{Type: ErrorTypeRateLimit, StatusCode: statusCode, RetryAfter: retryAfter, Message: message}
}

// NewWebSocketError creates an error for a stream-level failure.
// closeCode is zero when no close frame was involved.
func NewWebSocketError(closeCode int, message string, err error) *ClientError {
	return &ClientError{Type: ErrorTypeWebSocket, CloseCode: closeCode, Message: message, Err: err}
}

func typeOf(err error) (ErrorType, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type, true
	}
	return ErrorTypeUnknown, false
}

// IsAuthError returns true if the error is a credential or signing failure.
// Authentication errors are never retryable.
func IsAuthError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeAuth
}

// IsValidationError returns true if the error is a parameter validation failure.
func IsValidationError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeValidation
}

// IsNetworkError returns true if the error is a network connectivity issue.
// Network errors are typically retryable.
func IsNetworkError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeNetwork
}

// IsTimeoutError returns true if the error is a timeout.
func IsTimeoutError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeTimeout
}

// IsRateLimitError returns true if the error is a rate limit rejection.
// Rate limit errors should be retried after the advertised delay.
func IsRateLimitError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeRateLimit
}

// IsAPIError returns true if the error is a non-2xx exchange response.
func IsAPIError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeAPIResponse
}

// IsWebSocketError returns true if the error is a stream-level failure.
func IsWebSocketError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeWebSocket
}

// IsRetryable reports whether the transport may retry the failed call.
// Server errors, rate limits and network failures are retryable; client
// errors and auth failures are not.
func IsRetryable(err error) bool {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit:
		return true
	case ErrorTypeAPIResponse:
		return ce.StatusCode >= 500
	default:
		return false
	}
}
