// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/didact-labs/didact/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/didact-labs/didact/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/didact-labs/didact/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/didact-labs/didact/internal/adapters/driven/llm/ollama"
	openaillm "github.com/didact-labs/didact/internal/adapters/driven/llm/openai"
	"github.com/didact-labs/didact/internal/adapters/driven/llm/ratelimit"
	"github.com/didact-labs/didact/internal/adapters/driven/tokens"
	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
	"github.com/didact-labs/didact/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// newTokenCounter loads the tokenizer for a model. Replaced in tests.
var newTokenCounter = func(model string) (driven.TokenCounter, error) {
	counter, err := tokens.NewTiktokenCounter(model)
	if err != nil {
		return nil, err
	}
	return counter, nil
}

// InitResult contains the AI services used by the answer pipeline.
type InitResult struct {
	EmbeddingService driven.EmbeddingService

	// LLMService writes the final answer.
	LLMService driven.LLMService

	// SummaryLLMService summarises evidence. It is LLMService unless a
	// separate summary model is configured.
	SummaryLLMService driven.LLMService

	// TokenCounter is nil when no encoding could be loaded.
	TokenCounter driven.TokenCounter

	Warnings []string // Non-fatal issues that caused fallback.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.SummaryLLMService != nil && r.SummaryLLMService != r.LLMService {
		r.SummaryLLMService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates the embedding, answer and summary services from settings.
// Services are not pinged; a provider that is not configured is an error.
func Init(settings domain.AppSettings) (*InitResult, error) {
	result := &InitResult{}

	embedding, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if embedding == nil {
		return nil, fmt.Errorf("%w: run 'didact settings embedding' to configure", domain.ErrEmbeddingUnavailable)
	}
	result.EmbeddingService = embedding

	llm, err := createLimitedLLM(&settings.LLM)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.LLMService = llm
	result.SummaryLLMService = llm

	if settings.SummaryLLM.Provider != "" {
		summary, err := createLimitedLLM(&settings.SummaryLLM)
		if err != nil {
			result.Close()
			return nil, fmt.Errorf("summary model: %w", err)
		}
		result.SummaryLLMService = summary
	}

	counter, err := newTokenCounter(llm.ModelName())
	if err != nil {
		msg := fmt.Sprintf("token counting unavailable, using estimate: %v", err)
		logger.Warn("%s", msg)
		result.Warnings = append(result.Warnings, msg)
	} else {
		result.TokenCounter = counter
	}

	return result, nil
}

func createLimitedLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	llm, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if llm == nil {
		return nil, fmt.Errorf("%w: run 'didact settings llm' to configure", domain.ErrLLMUnavailable)
	}
	return ratelimit.Wrap(llm, settings.RequestsPerSecond, settings.Burst), nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'didact settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'didact settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'didact settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'didact settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
// This is intended for use by the settings commands to validate credentials on configuration.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
// This is intended for use by the settings commands to validate credentials on configuration.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		if settings != nil && settings.Provider == domain.AIProviderAnthropic {
			return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")
		}
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[settings.Model]

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
