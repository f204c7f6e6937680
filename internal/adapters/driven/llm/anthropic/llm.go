// Package anthropic provides an LLM service adapter using Anthropic API.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/didact-labs/didact/internal/adapters/driven/httpclient"
	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 4096

	// AnthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// jsonInstruction is appended to the system prompt for JSON requests.
// The messages API has no response format switch.
const jsonInstruction = "Respond with a single JSON object and nothing else."

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides completions using the Anthropic messages API.
type LLMService struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		client:  httpclient.New("anthropic", cfg.Timeout),
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Complete runs one messages call. Text blocks of the reply are concatenated.
func (s *LLMService) Complete(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	system := req.System
	if req.JSON {
		system = strings.TrimSpace(system + "\n\n" + jsonInstruction)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	reqBody := messagesRequest{
		Model:       s.model,
		Messages:    []messagesMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: req.Temperature,
	}

	var msgResp messagesResponse
	if err := s.client.PostJSON(ctx, s.baseURL+"/v1/messages", s.headers(), reqBody, &msgResp); err != nil {
		return driven.Completion{}, err
	}
	if msgResp.Error != nil {
		return driven.Completion{}, fmt.Errorf("anthropic error: %s", msgResp.Error.Message)
	}

	var text strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return driven.Completion{}, fmt.Errorf("anthropic: no text content returned")
	}

	model := msgResp.Model
	if model == "" {
		model = s.model
	}
	return driven.Completion{
		Model:            model,
		Text:             text.String(),
		PromptTokens:     msgResp.Usage.InputTokens,
		CompletionTokens: msgResp.Usage.OutputTokens,
	}, nil
}

func (s *LLMService) headers() map[string]string {
	return map[string]string{
		"x-api-key":         s.apiKey,
		"anthropic-version": anthropicVersion,
	}
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key against the /v1/models endpoint.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, s.baseURL+"/v1/models", s.headers())
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
