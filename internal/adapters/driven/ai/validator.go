package ai

import (
	"os"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator pings AI providers to check a configuration. Missing API
// keys are taken from the environment, so validation sees the same
// credentials the query pipeline will use.
type ConfigValidator struct {
	lookupEnv func(string) (string, bool)
}

// NewConfigValidator creates a validator that reads the process environment.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{lookupEnv: os.LookupEnv}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil {
		return nil
	}
	c := *config
	if c.APIKey == "" && v.lookupEnv != nil {
		c.APIKey = envKeyFor(c.Provider, v.lookupEnv)
	}
	return ValidateEmbeddingConfig(&c)
}

// ValidateLLM validates an LLM configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil {
		return nil
	}
	c := *config
	if c.APIKey == "" && v.lookupEnv != nil {
		c.APIKey = envKeyFor(c.Provider, v.lookupEnv)
	}
	return ValidateLLMConfig(&c)
}
