package driven

import "github.com/didact-labs/didact/internal/core/domain"

// AIConfigValidator checks provider settings before the settings service
// reports them as usable. Only configured providers are contacted.
type AIConfigValidator interface {
	// ValidateEmbedding pings the embedding provider named by config.
	// Returns nil for a nil or unconfigured config.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM pings the LLM provider named by config.
	// Returns nil for a nil or unconfigured config.
	ValidateLLM(config *domain.LLMSettings) error
}
