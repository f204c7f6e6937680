// Package ollama provides an LLM service adapter using Ollama.
package ollama

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
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides completions using a local Ollama server.
type LLMService struct {
	client  *httpclient.Client
	baseURL string
	model   string
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  *options      `json:"options,omitempty"`
}

// chatMessage is the Ollama chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error,omitempty"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
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
		client:  httpclient.New("ollama", cfg.Timeout),
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}
}

// Complete runs one non-streaming chat call. JSON requests use format "json".
func (s *LLMService) Complete(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	reqBody := chatRequest{
		Model:    s.model,
		Messages: messages,
		Stream:   false,
	}
	if req.JSON {
		reqBody.Format = "json"
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		reqBody.Options = &options{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		}
	}

	var chatResp chatResponse
	if err := s.client.PostJSON(ctx, s.baseURL+"/api/chat", nil, reqBody, &chatResp); err != nil {
		return driven.Completion{}, err
	}
	if chatResp.Error != "" {
		return driven.Completion{}, fmt.Errorf("ollama error: %s", chatResp.Error)
	}

	model := chatResp.Model
	if model == "" {
		model = s.model
	}
	return driven.Completion{
		Model:            model,
		Text:             chatResp.Message.Content,
		PromptTokens:     chatResp.PromptEvalCount,
		CompletionTokens: chatResp.EvalCount,
	}, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, s.baseURL+"/api/tags", nil)
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
