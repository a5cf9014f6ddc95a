package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType categorizes provider-neutral errors.
type ErrorType string

const (
	// ErrAuthentication is an invalid or missing credential. Never retried.
	ErrAuthentication ErrorType = "authentication_error"
	// ErrRateLimit is provider throttling. Retried per policy.
	ErrRateLimit ErrorType = "rate_limit_error"
	// ErrNetwork is a transport-level failure. Retried per policy.
	ErrNetwork ErrorType = "network_error"
	// ErrAPI is a structured provider error. Retry decision is
	// message-pattern based.
	ErrAPI ErrorType = "api_error"
	// ErrOverloaded is a provider capacity error. Retried per policy.
	ErrOverloaded ErrorType = "overloaded_error"
	// ErrInvalidRequest is a caller error. Never retried.
	ErrInvalidRequest ErrorType = "invalid_request_error"
	// ErrUnsupported marks an operation the provider cannot perform. Never
	// retried.
	ErrUnsupported ErrorType = "unsupported_operation"
	// ErrTimeout marks a tool execution that exceeded its allotted time.
	ErrTimeout ErrorType = "timeout_error"
	// ErrConnection marks a realtime transport that could not (re)establish.
	ErrConnection ErrorType = "connection_error"
)

// Error is the provider-neutral error type.
type Error struct {
	Type       ErrorType      `json:"type"`
	Message    string         `json:"message"`
	Code       string         `json:"code,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	RetryAfter *time.Duration `json:"retry_after,omitempty"`

	// Underlying is the original provider or transport error, if any.
	Underlying error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.As/Is chains.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// TransientPatterns are substrings that mark an API error message as
// transient. Providers do not always expose a machine-readable transience
// flag, so this list is a heuristic starting point; callers may extend it at
// startup, before any concurrent use.
var TransientPatterns = []string{
	"rate limit",
	"too many requests",
	"service unavailable",
	"overloaded",
	"502",
	"504",
	"timeout",
	"connection reset",
}

// IsRetryable reports whether retrying this error could plausibly succeed.
// Rate-limit, overload, and network errors are retryable. API errors are
// retryable only when their message matches a known transient pattern.
// Authentication, invalid-request, and unsupported-operation errors are
// permanent.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrRateLimit, ErrOverloaded, ErrNetwork:
		return true
	case ErrAPI:
		msg := strings.ToLower(e.Message)
		for _, pattern := range TransientPatterns {
			if strings.Contains(msg, pattern) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// IsRetryable reports whether err unwraps to a retryable *Error. Unknown
// error types are treated as non-retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}

// RetryAfterHint extracts the provider's retry-after hint, if any.
func RetryAfterHint(err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.RetryAfter != nil {
		return *e.RetryAfter, true
	}
	return 0, false
}

// NewAuthenticationError creates an authentication error.
func NewAuthenticationError(message string) *Error {
	return &Error{Type: ErrAuthentication, Message: message}
}

// NewRateLimitError creates a rate limit error with an optional retry-after
// hint (zero means no hint).
func NewRateLimitError(message string, retryAfter time.Duration) *Error {
	e := &Error{Type: ErrRateLimit, Message: message}
	if retryAfter > 0 {
		e.RetryAfter = &retryAfter
	}
	return e
}

// NewNetworkError wraps a transport-level failure.
func NewNetworkError(underlying error) *Error {
	return &Error{Type: ErrNetwork, Message: underlying.Error(), Underlying: underlying}
}

// NewAPIError creates a structured provider error.
func NewAPIError(message string) *Error {
	return &Error{Type: ErrAPI, Message: message}
}

// NewOverloadedError creates a capacity error.
func NewOverloadedError(message string) *Error {
	return &Error{Type: ErrOverloaded, Message: message}
}

// NewInvalidRequestError creates a caller error.
func NewInvalidRequestError(message string) *Error {
	return &Error{Type: ErrInvalidRequest, Message: message}
}

// NewUnsupportedError creates an unsupported-operation error.
func NewUnsupportedError(message string) *Error {
	return &Error{Type: ErrUnsupported, Message: message}
}

// NewTimeoutError creates a tool-execution timeout error.
func NewTimeoutError(message string) *Error {
	return &Error{Type: ErrTimeout, Message: message}
}

// NewConnectionError creates a realtime connection error.
func NewConnectionError(message string, underlying error) *Error {
	return &Error{Type: ErrConnection, Message: message, Underlying: underlying}
}
