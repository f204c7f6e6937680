// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService provides language model completions for evidence summarisation
// and answer synthesis.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Complete runs a single system+user completion.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionRequest configures one completion call.
type CompletionRequest struct {
	// System is the system prompt. May be empty.
	System string

	// Prompt is the rendered user prompt.
	Prompt string

	// JSON asks the provider for a JSON object response where supported.
	JSON bool

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// Completion is the text and token usage of one call.
type Completion struct {
	// Model is the model that served the request.
	Model string

	Text             string
	PromptTokens     int
	CompletionTokens int
}
