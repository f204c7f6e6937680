package services

import (
	"fmt"
	"time"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
	"github.com/didact-labs/didact/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEvidenceK          = "answer.evidence_k"
	keyMaxConcurrent      = "answer.max_concurrent_requests"
	keyAnswerMaxSources   = "answer.answer_max_sources"
	keySkipSummary        = "answer.evidence_skip_summary"
	keyUseJSON            = "answer.use_json"
	keyDetailedCitations  = "answer.evidence_detailed_citations"
	keyAnswerLength       = "answer.answer_length"
	keySummaryLength      = "answer.evidence_summary_length"
	keyFilterBackground   = "answer.filter_extra_background"
	keyMaxContextTokens   = "answer.max_context_tokens"
	keySummaryTimeout     = "answer.summary_timeout"
	keyMMRLambda          = "retrieval.mmr_lambda"
	keyPageSize           = "retrieval.page_size"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyLLMPrefix          = "llm"
	keySummaryLLMPrefix   = "summary_llm"
	suffixProvider        = ".provider"
	suffixModel           = ".model"
	suffixBaseURL         = ".base_url"
	suffixAPIKey          = ".api_key"
	suffixRequestsPerSec  = ".requests_per_second"
	suffixBurst           = ".burst"
	defaultOllamaEndpoint = "http://localhost:11434"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()
	da := defaults.Answer

	settings := &domain.AppSettings{
		Answer: domain.AnswerSettings{
			EvidenceK:             s.getInt(keyEvidenceK, da.EvidenceK),
			MaxConcurrentRequests: s.getInt(keyMaxConcurrent, da.MaxConcurrentRequests),
			AnswerMaxSources:      s.getInt(keyAnswerMaxSources, da.AnswerMaxSources),
			SkipSummary:           s.getBool(keySkipSummary, da.SkipSummary),
			UseJSON:               s.getBool(keyUseJSON, da.UseJSON),
			DetailedCitations:     s.getBool(keyDetailedCitations, da.DetailedCitations),
			AnswerLength:          s.getString(keyAnswerLength, da.AnswerLength),
			SummaryLength:         s.getString(keySummaryLength, da.SummaryLength),
			FilterExtraBackground: s.getBool(keyFilterBackground, da.FilterExtraBackground),
			MaxContextTokens:      s.getInt(keyMaxContextTokens, da.MaxContextTokens),
		},
		Retrieval: domain.RetrievalSettings{
			MMRLambda: s.getFloat(keyMMRLambda, defaults.Retrieval.MMRLambda),
			PageSize:  s.getInt(keyPageSize, defaults.Retrieval.PageSize),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM:        s.getLLM(keyLLMPrefix, defaults.LLM),
		SummaryLLM: s.getLLM(keySummaryLLMPrefix, defaults.SummaryLLM),
	}

	timeout, err := s.getDuration(keySummaryTimeout, da.SummaryTimeout)
	if err != nil {
		return nil, err
	}
	settings.Answer.SummaryTimeout = timeout

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := s.saveAnswer(settings.Answer); err != nil {
		return err
	}

	// Save retrieval settings
	if err := s.configStore.Set(keyMMRLambda, settings.Retrieval.MMRLambda); err != nil {
		return fmt.Errorf("save mmr_lambda: %w", err)
	}
	if err := s.configStore.Set(keyPageSize, settings.Retrieval.PageSize); err != nil {
		return fmt.Errorf("save page_size: %w", err)
	}

	// Save embedding settings
	if err := s.configStore.Set(keyEmbedProvider, settings.Embedding.Provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, settings.Embedding.Model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if err := s.configStore.Set(keyEmbedBaseURL, settings.Embedding.BaseURL); err != nil {
		return fmt.Errorf("save embedding base_url: %w", err)
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	// Save LLM settings
	if err := s.saveLLM(keyLLMPrefix, settings.LLM); err != nil {
		return err
	}
	if settings.SummaryLLM.Provider != "" {
		if err := s.saveLLM(keySummaryLLMPrefix, settings.SummaryLLM); err != nil {
			return err
		}
	}

	return nil
}

func (s *SettingsService) saveAnswer(a domain.AnswerSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEvidenceK, a.EvidenceK},
		{keyMaxConcurrent, a.MaxConcurrentRequests},
		{keyAnswerMaxSources, a.AnswerMaxSources},
		{keySkipSummary, a.SkipSummary},
		{keyUseJSON, a.UseJSON},
		{keyDetailedCitations, a.DetailedCitations},
		{keyAnswerLength, a.AnswerLength},
		{keySummaryLength, a.SummaryLength},
		{keyFilterBackground, a.FilterExtraBackground},
		{keyMaxContextTokens, a.MaxContextTokens},
		{keySummaryTimeout, a.SummaryTimeout.String()},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

func (s *SettingsService) saveLLM(prefix string, l domain.LLMSettings) error {
	if err := s.configStore.Set(prefix+suffixProvider, l.Provider.String()); err != nil {
		return fmt.Errorf("save %s provider: %w", prefix, err)
	}
	if err := s.configStore.Set(prefix+suffixModel, l.Model); err != nil {
		return fmt.Errorf("save %s model: %w", prefix, err)
	}
	if err := s.configStore.Set(prefix+suffixBaseURL, l.BaseURL); err != nil {
		return fmt.Errorf("save %s base_url: %w", prefix, err)
	}
	if l.APIKey != "" {
		if err := s.configStore.Set(prefix+suffixAPIKey, l.APIKey); err != nil {
			return fmt.Errorf("save %s api_key: %w", prefix, err)
		}
	}
	if l.RequestsPerSecond > 0 {
		if err := s.configStore.Set(prefix+suffixRequestsPerSec, l.RequestsPerSecond); err != nil {
			return fmt.Errorf("save %s requests_per_second: %w", prefix, err)
		}
		if err := s.configStore.Set(prefix+suffixBurst, l.Burst); err != nil {
			return fmt.Errorf("save %s burst: %w", prefix, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}

	// Validate provider supports embeddings
	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, provider, domain.DefaultEmbeddingModels())
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the answer LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, provider, domain.DefaultLLMModels())
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetAnswerSettings updates the answer pipeline options.
func (s *SettingsService) SetAnswerSettings(answer domain.AnswerSettings) error {
	if err := answer.Validate(); err != nil {
		return err
	}
	return s.saveAnswer(answer)
}

// Validate checks that the current settings can answer questions.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if err := settings.Answer.Validate(); err != nil {
		return err
	}
	if err := settings.Retrieval.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider is not configured", domain.ErrEmbeddingUnavailable)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider is not configured", domain.ErrLLMUnavailable)
	}
	if settings.SummaryLLM.Provider != "" && !settings.SummaryLLM.IsConfigured() {
		return fmt.Errorf("%w: summary LLM provider is not configured", domain.ErrLLMUnavailable)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func modelOrDefault(model string, provider domain.AIProvider, defaults map[domain.AIProvider]string) string {
	if model != "" {
		return model
	}
	return defaults[provider]
}

// baseURLFor keeps a custom local endpoint; cloud providers use their default.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return defaultOllamaEndpoint
	}
	return current
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getLLM(prefix string, defaults domain.LLMSettings) domain.LLMSettings {
	return domain.LLMSettings{
		Provider:          s.getProvider(prefix+suffixProvider, defaults.Provider),
		Model:             s.getString(prefix+suffixModel, defaults.Model),
		BaseURL:           s.configStore.GetString(prefix + suffixBaseURL),
		APIKey:            s.configStore.GetString(prefix + suffixAPIKey),
		RequestsPerSecond: s.getFloat(prefix+suffixRequestsPerSec, defaults.RequestsPerSecond),
		Burst:             s.getInt(prefix+suffixBurst, defaults.Burst),
	}
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	return d, nil
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
