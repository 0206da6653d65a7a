package llmchat

import "fmt"

// ChatError is the base error type for all llmchat errors.
type ChatError struct {
	Message string
	Cause   error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

// ProviderError represents an error returned by a model provider.
type ProviderError struct {
	ChatError
	Provider   string
	StatusCode int
	Retryable  bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type NotFoundError struct{ ProviderError }
type InvalidRequestError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }
type ContextLengthError struct{ ProviderError }

// Non-provider errors.

type RequestTimeoutError struct{ ChatError }
type NetworkError struct{ ChatError }
type AbortError struct{ ChatError }
type ConfigurationError struct{ ChatError }

// IsRetryable reports whether the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *ProviderError:
		return e.Retryable
	case *AuthenticationError:
		return false
	case *NotFoundError:
		return false
	case *InvalidRequestError:
		return false
	case *ContextLengthError:
		return false
	case *ConfigurationError:
		return false
	case *AbortError:
		return false
	case *RateLimitError:
		return true
	case *ServerError:
		return true
	case *NetworkError:
		return true
	case *RequestTimeoutError:
		return true
	default:
		// Unknown errors default to retryable.
		return true
	}
}
