package driving

import (
	"context"

	"github.com/didact-labs/didact/internal/core/domain"
)

// DocumentService manages documents already in the corpus.
type DocumentService interface {
	// List returns all documents including soft-deleted ones.
	List(ctx context.Context) ([]domain.DocumentInfo, error)

	// Delete soft-deletes a document so its passages are no longer used as evidence.
	Delete(ctx context.Context, key string) error

	// Restore reverses a soft delete.
	Restore(ctx context.Context, key string) error
}
