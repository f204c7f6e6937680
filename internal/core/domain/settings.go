package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// RequestsPerSecond throttles calls to the provider. Zero disables it.
	RequestsPerSecond float64

	// Burst is the number of requests allowed above the steady rate.
	Burst int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// AnswerSettings controls evidence gathering and answer synthesis.
type AnswerSettings struct {
	// EvidenceK is the number of passages summarised per question.
	EvidenceK int

	// MaxConcurrentRequests caps in-flight summarisation calls.
	MaxConcurrentRequests int

	// AnswerMaxSources caps the contexts used for the final answer.
	AnswerMaxSources int

	// SkipSummary uses raw passages as evidence without summarisation.
	SkipSummary bool

	// UseJSON requests structured summaries.
	UseJSON bool

	// DetailedCitations includes the document citation in each context block.
	DetailedCitations bool

	// AnswerLength is the length target given to the answer prompt.
	AnswerLength string

	// SummaryLength is the length target given to the summary prompt.
	SummaryLength string

	// FilterExtraBackground removes "(Extra background information)" markers.
	FilterExtraBackground bool

	// MaxContextTokens bounds the rendered context block. Zero disables it.
	MaxContextTokens int

	// SummaryTimeout bounds each summarisation request.
	SummaryTimeout time.Duration
}

// RetrievalSettings controls passage retrieval.
type RetrievalSettings struct {
	// MMRLambda mixes relevance (1) and diversity (0).
	MMRLambda float64

	// PageSize is the batch size used when loading the passage pool.
	PageSize int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Answer    AnswerSettings
	Retrieval RetrievalSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds the answer model settings.
	LLM LLMSettings

	// SummaryLLM holds the evidence summarisation model settings.
	// Falls back to LLM when its provider is unset.
	SummaryLLM LLMSettings
}

// EffectiveSummaryLLM returns the summary model settings with fallback applied.
func (s AppSettings) EffectiveSummaryLLM() LLMSettings {
	if s.SummaryLLM.Provider == "" {
		return s.LLM
	}
	return s.SummaryLLM
}

// Validate checks that numeric settings are within range.
func (s AnswerSettings) Validate() error {
	if s.EvidenceK < 1 {
		return fmt.Errorf("%w: evidence_k must be at least 1", ErrInvalidInput)
	}
	if s.MaxConcurrentRequests < 1 {
		return fmt.Errorf("%w: max_concurrent_requests must be at least 1", ErrInvalidInput)
	}
	if s.AnswerMaxSources < 1 {
		return fmt.Errorf("%w: answer_max_sources must be at least 1", ErrInvalidInput)
	}
	if s.MaxContextTokens < 0 {
		return fmt.Errorf("%w: max_context_tokens must not be negative", ErrInvalidInput)
	}
	return nil
}

// Validate checks that retrieval settings are within range.
func (s RetrievalSettings) Validate() error {
	if s.MMRLambda < 0 || s.MMRLambda > 1 {
		return fmt.Errorf("%w: mmr_lambda must be within [0,1]", ErrInvalidInput)
	}
	if s.PageSize < 1 {
		return fmt.Errorf("%w: page_size must be at least 1", ErrInvalidInput)
	}
	return nil
}

// DefaultAnswerSettings returns the answer pipeline defaults.
func DefaultAnswerSettings() AnswerSettings {
	return AnswerSettings{
		EvidenceK:             10,
		MaxConcurrentRequests: 4,
		AnswerMaxSources:      5,
		SkipSummary:           false,
		UseJSON:               true,
		DetailedCitations:     true,
		AnswerLength:          "about 200 words, but can be longer",
		SummaryLength:         "about 100 words",
		FilterExtraBackground: false,
		MaxContextTokens:      0,
		SummaryTimeout:        60 * time.Second,
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; users must set them explicitly.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Answer: DefaultAnswerSettings(),
		Retrieval: RetrievalSettings{
			MMRLambda: 1.0,
			PageSize:  500,
		},
		Embedding: EmbeddingSettings{},
		LLM:       LLMSettings{},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
