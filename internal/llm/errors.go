package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// Common error codes
const (
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeRateLimit    = "rate_limit_exceeded"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeTimeout      = "timeout"
	ErrCodeCanceled     = "canceled"
	ErrCodeBlocked      = "content_blocked"
)

// ProviderError represents an error from an LLM provider
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the call may succeed if repeated
func (e *ProviderError) Retryable() bool {
	switch e.Code {
	case ErrCodeRateLimit, ErrCodeServiceDown, ErrCodeTimeout:
		return true
	}
	return false
}

// IsRetryable reports whether err is a transient provider failure
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// classifyError wraps a raw provider error into a ProviderError with a stable code
func classifyError(provider Provider, message string, err error) *ProviderError {
	return &ProviderError{Provider: string(provider), Code: errorCode(err), Message: message, Err: err}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		return ErrCodeCanceled
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return codeForStatus(gerr.Code)
	}

	// gRPC transports surface the status only in the message
	msg := err.Error()
	switch {
	case containsAny(msg, "RESOURCE_EXHAUSTED", "ResourceExhausted", "429"):
		return ErrCodeRateLimit
	case containsAny(msg, "DEADLINE_EXCEEDED", "DeadlineExceeded"):
		return ErrCodeTimeout
	case containsAny(msg, "UNAVAILABLE", "Unavailable", "INTERNAL", "code = Internal", "500", "503"):
		return ErrCodeServiceDown
	case containsAny(msg, "PERMISSION_DENIED", "PermissionDenied", "UNAUTHENTICATED", "Unauthenticated", "API key not valid"):
		return ErrCodeAPIKey
	}
	return ErrCodeInvalidInput
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrCodeTimeout
	case status >= 500:
		return ErrCodeServiceDown
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrCodeAPIKey
	default:
		return ErrCodeInvalidInput
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
