package schema

import "context"

// ChatOptions configures a single LLM chat request.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Usage reports token consumption for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// LLMResponse is the normalised response from any LLM backend.
type LLMResponse struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// LLMProvider is the interface every LLM backend must satisfy.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (LLMResponse, error)
	DefaultModel() string
}
