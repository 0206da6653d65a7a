package llmchat

import (
	"errors"
	"strings"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	pe := func(retryable bool) ProviderError {
		return ProviderError{ChatError: ChatError{Message: "x"}, Provider: "ollama", Retryable: retryable}
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"authentication", &AuthenticationError{ProviderError: pe(false)}, false},
		{"not found", &NotFoundError{ProviderError: pe(false)}, false},
		{"invalid request", &InvalidRequestError{ProviderError: pe(false)}, false},
		{"context length", &ContextLengthError{ProviderError: pe(false)}, false},
		{"configuration", &ConfigurationError{ChatError: ChatError{Message: "x"}}, false},
		{"abort", &AbortError{ChatError: ChatError{Message: "x"}}, false},
		{"rate limit", &RateLimitError{ProviderError: pe(true)}, true},
		{"server", &ServerError{ProviderError: pe(true)}, true},
		{"network", &NetworkError{ChatError: ChatError{Message: "x"}}, true},
		{"timeout", &RequestTimeoutError{ChatError: ChatError{Message: "x"}}, true},
		{"provider retryable", &ProviderError{ChatError: ChatError{Message: "x"}, Retryable: true}, true},
		{"provider not retryable", &ProviderError{ChatError: ChatError{Message: "x"}}, false},
		{"unknown", errors.New("mystery"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%T) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestChatErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &ChatError{Message: "wrapper", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "root cause") {
		t.Errorf("expected message to include cause, got %q", err.Error())
	}
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{
		ChatError:  ChatError{Message: "boom"},
		Provider:   "ollama",
		StatusCode: 500,
		Retryable:  true,
	}
	msg := err.Error()
	for _, want := range []string{"ollama", "boom", "500"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error message to contain %q, got %q", want, msg)
		}
	}
}

func TestUsageAdd(t *testing.T) {
	a := Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}
	b := Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}

	sum := a.Add(b)
	if sum.InputTokens != 11 || sum.OutputTokens != 22 || sum.TotalTokens != 33 {
		t.Errorf("unexpected sum: %+v", sum)
	}
}
