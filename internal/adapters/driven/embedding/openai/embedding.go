// Package openai embeds queries with the OpenAI /embeddings endpoint or any
// API compatible with it.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/didact-labs/didact/internal/adapters/driven/httpclient"
	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Defaults applied by NewEmbeddingService.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// MaxBatchSize is the input limit of one /embeddings request.
	MaxBatchSize = 2048

	fallbackDimensions = 1536
)

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL points at OpenAI or a compatible API.
	BaseURL string

	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3 vectors. Zero uses the model size.
	Dimensions int

	// BatchSize caps inputs per request, MaxBatchSize when zero.
	BatchSize int
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	client     *httpclient.Client
	endpoint   string
	headers    map[string]string
	model      string
	dimensions int
	batchSize  int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates an OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
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
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}

	return &EmbeddingService{
		client:     httpclient.New("openai", cfg.Timeout),
		endpoint:   strings.TrimRight(cfg.BaseURL, "/"),
		headers:    map[string]string{"Authorization": "Bearer " + cfg.APIKey},
		model:      cfg.Model,
		dimensions: modelDimensions(cfg.Model, cfg.Dimensions),
		batchSize:  cfg.BatchSize,
	}, nil
}

// modelDimensions returns the vector size for a model. Only text-embedding-3
// models honour a requested size.
func modelDimensions(model string, requested int) int {
	if requested > 0 && shortenable(model) {
		return requested
	}
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	}
	if requested > 0 {
		return requested
	}
	return fallbackDimensions
}

func shortenable(model string) bool {
	return strings.HasPrefix(model, "text-embedding-3-")
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts, splitting them into requests of at most the
// configured batch size. Results follow input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		vecs, err := s.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{Model: s.model, Input: texts}
	if shortenable(s.model) {
		req.Dimensions = s.dimensions
	}

	var resp embeddingResponse
	if err := s.client.PostJSON(ctx, s.endpoint+"/embeddings", s.headers, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("openai error: %s", resp.Error.Message)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vecs[d.Index] = vec
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("openai: missing embedding for input %d", i)
		}
	}
	return vecs, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the API key against GET /models without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, s.endpoint+"/models", s.headers)
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}
