// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingMode distinguishes query embeddings from document embeddings.
type EmbeddingMode string

// Available embedding modes.
const (
	EmbeddingModeDocument EmbeddingMode = "document"
	EmbeddingModeQuery    EmbeddingMode = "query"
)

// ModalEmbedder is implemented by embedding services that embed queries
// and documents differently. Callers switching to query mode must
// reset to document mode afterwards.
type ModalEmbedder interface {
	SetMode(mode EmbeddingMode)
	Mode() EmbeddingMode
}
