// Package ollama provides an embedding service adapter using Ollama.
package ollama

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/didact-labs/didact/internal/adapters/driven/httpclient"
	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interfaces.
var (
	_ driven.EmbeddingService = (*EmbeddingService)(nil)
	_ driven.ModalEmbedder    = (*EmbeddingService)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768 // nomic-embed-text default
)

// Task prefixes expected by nomic embedding models.
const (
	nomicQueryPrefix    = "search_query: "
	nomicDocumentPrefix = "search_document: "
)

// Config holds configuration for the Ollama embedding service.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int
}

// EmbeddingService generates embeddings using Ollama. Models of the nomic
// family get task prefixes according to the current mode.
type EmbeddingService struct {
	client     *httpclient.Client
	baseURL    string
	model      string
	dimensions int

	mu   sync.RWMutex
	mode driven.EmbeddingMode
}

// embedRequest is the Ollama /api/embed request format.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the Ollama /api/embed response format.
type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewEmbeddingService creates a new Ollama embedding service in document mode.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	return &EmbeddingService{
		client:     httpclient.New("ollama", cfg.Timeout),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		mode:       driven.EmbeddingModeDocument,
	}
}

// SetMode switches between query and document embedding.
func (s *EmbeddingService) SetMode(mode driven.EmbeddingMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// Mode returns the current embedding mode.
func (s *EmbeddingService) Mode() driven.EmbeddingMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds texts in one /api/embed request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prefix := s.prefix()
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = prefix + t
	}

	var embedResp embedResponse
	if err := s.client.PostJSON(ctx, s.baseURL+"/api/embed", nil, embedRequest{Model: s.model, Input: input}, &embedResp); err != nil {
		return nil, err
	}
	if embedResp.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", embedResp.Error)
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: expected %d embeddings, got %d", len(texts), len(embedResp.Embeddings))
	}

	// Convert float64 to float32
	embeddings := make([][]float32, len(texts))
	for i, vec := range embedResp.Embeddings {
		embedding := make([]float32, len(vec))
		for j, v := range vec {
			embedding[j] = float32(v)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

func (s *EmbeddingService) prefix() string {
	if !strings.Contains(strings.ToLower(s.model), "nomic") {
		return ""
	}
	if s.Mode() == driven.EmbeddingModeQuery {
		return nomicQueryPrefix
	}
	return nomicDocumentPrefix
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, s.baseURL+"/api/tags", nil)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
