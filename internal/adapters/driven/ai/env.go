package ai

import (
	"github.com/didact-labs/didact/internal/core/domain"
)

// Environment variables consulted for API keys missing from the config file.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// ApplyEnvAPIKeys fills empty API keys from the environment. Keys already
// set in settings win.
func ApplyEnvAPIKeys(settings *domain.AppSettings, lookup func(string) (string, bool)) {
	if settings == nil || lookup == nil {
		return
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = envKeyFor(settings.Embedding.Provider, lookup)
	}
	for _, l := range []*domain.LLMSettings{&settings.LLM, &settings.SummaryLLM} {
		if l.APIKey == "" {
			l.APIKey = envKeyFor(l.Provider, lookup)
		}
	}
}

func envKeyFor(provider domain.AIProvider, lookup func(string) (string, bool)) string {
	var name string
	switch provider {
	case domain.AIProviderOpenAI:
		name = EnvOpenAIAPIKey
	case domain.AIProviderAnthropic:
		name = EnvAnthropicAPIKey
	default:
		return ""
	}
	v, _ := lookup(name)
	return v
}
