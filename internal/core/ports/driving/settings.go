package driving

import "github.com/didact-labs/didact/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the answer LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// SetAnswerSettings updates the answer pipeline options.
	SetAnswerSettings(answer domain.AnswerSettings) error

	// Validate checks that the current settings can answer questions.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error
}
