package llm

import (
	"fmt"
	"strings"
)

// ClientError is the base error type for model client failures.
type ClientError struct {
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error { return e.Cause }

// ProviderError is an error surfaced by the remote provider.
type ProviderError struct {
	ClientError
	Provider   string
	StatusCode int
	Retryable  bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }
type ContextLengthError struct{ ProviderError }
type RequestTimeoutError struct{ ClientError }
type ConfigurationError struct{ ClientError }

// IsRetryable reports whether the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *AuthenticationError:
		return false
	case *ContextLengthError:
		return false
	case *ConfigurationError:
		return false
	case *RateLimitError:
		return true
	case *ServerError:
		return true
	case *RequestTimeoutError:
		return true
	case *ProviderError:
		return e.Retryable
	default:
		// Unknown errors default to retryable.
		return true
	}
}

// classifyError converts a raw provider error into the typed hierarchy
// based on its message content.
func classifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	base := ClientError{Message: msg, Cause: err}

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		return &AuthenticationError{ProviderError{ClientError: base, Provider: provider, StatusCode: 401}}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return &RateLimitError{ProviderError{ClientError: base, Provider: provider, StatusCode: 429, Retryable: true}}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		return &ContextLengthError{ProviderError{ClientError: base, Provider: provider, StatusCode: 413}}
	case strings.Contains(lower, "500") || strings.Contains(lower, "internal server") || strings.Contains(lower, "overloaded"):
		return &ServerError{ProviderError{ClientError: base, Provider: provider, StatusCode: 500, Retryable: true}}
	case strings.Contains(lower, "timeout"):
		return &RequestTimeoutError{base}
	default:
		return &ProviderError{ClientError: base, Provider: provider, Retryable: true}
	}
}
