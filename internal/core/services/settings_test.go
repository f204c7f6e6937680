package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didact-labs/didact/internal/adapters/driven/storage/memory"
	"github.com/didact-labs/didact/internal/core/domain"
)

type stubValidator struct {
	embedErr error
	llmErr   error
	llm      *domain.LLMSettings
}

func (v *stubValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error { return v.embedErr }

func (v *stubValidator) ValidateLLM(config *domain.LLMSettings) error {
	v.llm = config
	return v.llmErr
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Answer, settings.Answer)
	assert.Equal(t, defaults.Retrieval, settings.Retrieval)
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.LLM.Provider, settings.LLM.Provider)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("answer.evidence_k", 3)
	_ = store.Set("answer.use_json", false)
	_ = store.Set("answer.summary_timeout", "5s")
	_ = store.Set("retrieval.mmr_lambda", 0.0)
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("llm.provider", "anthropic")
	_ = store.Set("llm.requests_per_second", 2.5)
	_ = store.Set("summary_llm.provider", "ollama")
	_ = store.Set("summary_llm.model", "llama3.2")

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, 3, settings.Answer.EvidenceK)
	assert.False(t, settings.Answer.UseJSON)
	assert.Equal(t, 5*time.Second, settings.Answer.SummaryTimeout)
	// An explicit zero lambda is kept rather than replaced by the default.
	assert.InDelta(t, 0.0, settings.Retrieval.MMRLambda, 1e-9)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.InDelta(t, 2.5, settings.LLM.RequestsPerSecond, 1e-9)
	assert.Equal(t, domain.AIProviderOllama, settings.EffectiveSummaryLLM().Provider)
}

func TestSettingsService_Get_InvalidValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "invalid_provider")

	settings, err := NewSettingsService(store, nil).Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings().Embedding.Provider, settings.Embedding.Provider)

	_ = store.Set("answer.summary_timeout", "soon")
	_, err = NewSettingsService(store, nil).Get()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings := domain.DefaultAppSettings()
	settings.Answer.EvidenceK = 7
	settings.Answer.SkipSummary = true
	settings.Answer.SummaryTimeout = 90 * time.Second
	settings.Retrieval.MMRLambda = 0.6
	settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "text-embedding-3-small",
		APIKey:   "sk-test-key",
	}
	settings.LLM = domain.LLMSettings{
		Provider:          domain.AIProviderAnthropic,
		Model:             "claude-3-5-sonnet-latest",
		APIKey:            "sk-ant-test",
		RequestsPerSecond: 1,
		Burst:             2,
	}

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings.Answer, got.Answer)
	assert.InDelta(t, 0.6, got.Retrieval.MMRLambda, 1e-9)
	assert.Equal(t, settings.Embedding, got.Embedding)
	assert.Equal(t, settings.LLM, got.LLM)
	assert.Equal(t, domain.AIProvider(""), got.SummaryLLM.Provider)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider domain.AIProvider
		model    string
		apiKey   string
		wantErr  bool
		wantURL  string
		wantMdl  string
	}{
		{"ollama default model", domain.AIProviderOllama, "", "", false, "http://localhost:11434", "nomic-embed-text"},
		{"openai with key", domain.AIProviderOpenAI, "text-embedding-3-large", "sk", false, "", "text-embedding-3-large"},
		{"openai without key", domain.AIProviderOpenAI, "", "", true, "", ""},
		{"anthropic unsupported", domain.AIProviderAnthropic, "", "sk", true, "", ""},
		{"unknown", domain.AIProvider("bogus"), "", "", true, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), nil)

			err := service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)

			got, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, got.Embedding.Provider)
			assert.Equal(t, tt.wantMdl, got.Embedding.Model)
			assert.Equal(t, tt.wantURL, got.Embedding.BaseURL)
		})
	}
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", "sk-ant"))
	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-sonnet-latest", got.LLM.Model)
	assert.Empty(t, got.LLM.BaseURL)

	err = service.SetLLMProvider(domain.AIProviderOpenAI, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_SetAnswerSettings(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	answer := domain.DefaultAnswerSettings()
	answer.AnswerMaxSources = 2
	require.NoError(t, service.SetAnswerSettings(answer))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, got.Answer.AnswerMaxSources)

	answer.EvidenceK = 0
	assert.ErrorIs(t, service.SetAnswerSettings(answer), domain.ErrInvalidInput)
}

func TestSettingsService_Validate(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	assert.ErrorIs(t, service.Validate(), domain.ErrEmbeddingUnavailable)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))
	assert.ErrorIs(t, service.Validate(), domain.ErrLLMUnavailable)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))
	assert.NoError(t, service.Validate())

	_ = store.Set("summary_llm.provider", "openai")
	assert.ErrorIs(t, service.Validate(), domain.ErrLLMUnavailable)

	_ = store.Set("retrieval.mmr_lambda", 1.5)
	assert.ErrorIs(t, service.Validate(), domain.ErrInvalidInput)
}

func TestSettingsService_ValidateProviders(t *testing.T) {
	validator := &stubValidator{llmErr: errors.New("unreachable")}
	service := NewSettingsService(memory.NewConfigStore(), validator)
	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "llama3.2", ""))

	assert.NoError(t, service.ValidateEmbeddingConfig())
	assert.EqualError(t, service.ValidateLLMConfig(), "unreachable")
	require.NotNil(t, validator.llm)
	assert.Equal(t, "llama3.2", validator.llm.Model)

	assert.NoError(t, NewSettingsService(memory.NewConfigStore(), nil).ValidateLLMConfig())
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}
