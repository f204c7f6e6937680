// Package openai provides an LLM service adapter using OpenAI API.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/didact-labs/didact/internal/adapters/driven/httpclient"
	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides completions using the OpenAI chat API.
type LLMService struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
	model   string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatCompletionMsg `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature,omitempty"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client:  httpclient.New("openai", cfg.Timeout),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Complete runs one chat completion. JSON requests use json_object mode.
func (s *LLMService) Complete(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	messages := make([]chatCompletionMsg, 0, 2)
	if req.System != "" {
		messages = append(messages, chatCompletionMsg{Role: "system", Content: req.System})
	}
	messages = append(messages, chatCompletionMsg{Role: "user", Content: req.Prompt})

	reqBody := chatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var chatResp chatCompletionResponse
	if err := s.client.PostJSON(ctx, s.baseURL+"/chat/completions", s.headers(), reqBody, &chatResp); err != nil {
		return driven.Completion{}, err
	}
	if chatResp.Error != nil {
		return driven.Completion{}, fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return driven.Completion{}, fmt.Errorf("openai: no response choices returned")
	}

	model := chatResp.Model
	if model == "" {
		model = s.model
	}
	return driven.Completion{
		Model:            model,
		Text:             chatResp.Choices[0].Message.Content,
		PromptTokens:     chatResp.Usage.PromptTokens,
		CompletionTokens: chatResp.Usage.CompletionTokens,
	}, nil
}

func (s *LLMService) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.apiKey}
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, s.baseURL+"/models", s.headers())
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
