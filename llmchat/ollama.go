package llmchat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

const (
	// DefaultOllamaModel is used when no model is configured.
	DefaultOllamaModel = "qwen2.5-coder:7b"

	// DefaultOllamaEndpoint is the local Ollama server address.
	DefaultOllamaEndpoint = "http://localhost:11434"
)

// OllamaAdapter wraps a gollm.LLM configured for a local Ollama server and
// implements ProviderAdapter.
type OllamaAdapter struct {
	llm   gollm.LLM
	model string
}

// OllamaOption configures an OllamaAdapter.
type OllamaOption func(*ollamaConfig)

type ollamaConfig struct {
	model       string
	endpoint    string
	temperature float64
	maxTokens   int
	extraOpts   []gollm.ConfigOption
}

// WithModel sets the default model for the adapter.
func WithModel(model string) OllamaOption {
	return func(c *ollamaConfig) {
		c.model = model
	}
}

// WithEndpoint sets the Ollama server endpoint.
func WithEndpoint(endpoint string) OllamaOption {
	return func(c *ollamaConfig) {
		c.endpoint = endpoint
	}
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) OllamaOption {
	return func(c *ollamaConfig) {
		c.temperature = t
	}
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) OllamaOption {
	return func(c *ollamaConfig) {
		c.maxTokens = n
	}
}

// WithGollmOptions adds extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) OllamaOption {
	return func(c *ollamaConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewOllamaAdapter creates an adapter talking to a local Ollama server.
func NewOllamaAdapter(opts ...OllamaOption) (*OllamaAdapter, error) {
	cfg := &ollamaConfig{
		model:       DefaultOllamaModel,
		endpoint:    DefaultOllamaEndpoint,
		temperature: 0,
		maxTokens:   4096,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider("ollama"),
		gollm.SetModel(cfg.model),
		gollm.SetOllamaEndpoint(cfg.endpoint),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetMaxRetries(0), // We handle retries ourselves.
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client for model %s: %w", cfg.model, err)
	}

	return &OllamaAdapter{llm: llm, model: cfg.model}, nil
}

// Name returns the provider identifier.
func (a *OllamaAdapter) Name() string {
	return "ollama"
}

// Complete sends a blocking request and returns the full response.
func (a *OllamaAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := a.translateRequest(req)
	a.applyRequestOptions(req)

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, a.translateError(err)
	}

	return a.buildResponse(req, text), nil
}

// translateRequest converts a Request into a gollm Prompt. Ollama's API takes
// a single prompt body, so assistant turns are folded in with a role prefix.
func (a *OllamaAdapter) translateRequest(req Request) *gollm.Prompt {
	var systemPrompt string
	var parts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt += msg.Content + "\n"
		case RoleUser:
			parts = append(parts, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				parts = append(parts, "[Assistant]: "+msg.Content)
			}
		}
	}

	promptText := strings.Join(parts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	promptOpts := []gollm.PromptOption{}
	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(systemPrompt), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// applyRequestOptions applies request-level parameters to the gollm LLM.
func (a *OllamaAdapter) applyRequestOptions(req Request) {
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

// buildResponse constructs a Response from the generated text.
func (a *OllamaAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}

	// Ollama via gollm doesn't expose usage; estimate from text length.
	in := estimateTokens(req)
	out := len(text) / 4

	return &Response{
		ID:       "resp_" + uuid.New().String()[:8],
		Model:    model,
		Provider: "ollama",
		Content:  text,
		Usage: Usage{
			InputTokens:  in,
			OutputTokens: out,
			TotalTokens:  in + out,
		},
	}
}

// translateError converts a gollm error into the llmchat error hierarchy.
func (a *OllamaAdapter) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	msgLower := strings.ToLower(msg)

	switch {
	case strings.Contains(msgLower, "401") || strings.Contains(msgLower, "unauthorized"):
		return &AuthenticationError{ProviderError: ProviderError{
			ChatError: ChatError{Message: msg, Cause: err}, Provider: "ollama", StatusCode: 401,
		}}
	case strings.Contains(msgLower, "404") || strings.Contains(msgLower, "not found"):
		return &NotFoundError{ProviderError: ProviderError{
			ChatError: ChatError{Message: msg, Cause: err}, Provider: "ollama", StatusCode: 404,
		}}
	case strings.Contains(msgLower, "429") || strings.Contains(msgLower, "rate limit"):
		return &RateLimitError{ProviderError: ProviderError{
			ChatError: ChatError{Message: msg, Cause: err}, Provider: "ollama", StatusCode: 429, Retryable: true,
		}}
	case strings.Contains(msgLower, "context length") || strings.Contains(msgLower, "too many tokens"):
		return &ContextLengthError{ProviderError: ProviderError{
			ChatError: ChatError{Message: msg, Cause: err}, Provider: "ollama", StatusCode: 413,
		}}
	case strings.Contains(msgLower, "500") || strings.Contains(msgLower, "internal server"):
		return &ServerError{ProviderError: ProviderError{
			ChatError: ChatError{Message: msg, Cause: err}, Provider: "ollama", StatusCode: 500, Retryable: true,
		}}
	case strings.Contains(msgLower, "timeout") || strings.Contains(msgLower, "deadline exceeded"):
		return &RequestTimeoutError{ChatError: ChatError{Message: msg, Cause: err}}
	case strings.Contains(msgLower, "connection refused") || strings.Contains(msgLower, "no such host"):
		return &NetworkError{ChatError: ChatError{Message: msg, Cause: err}}
	default:
		// Wrap as a generic provider error (retryable by default).
		return &ProviderError{
			ChatError: ChatError{Message: msg, Cause: err},
			Provider:  "ollama",
			Retryable: true,
		}
	}
}

// estimateTokens provides a rough token count estimate from request messages.
func estimateTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	if total == 0 {
		total = 10
	}
	return total
}
