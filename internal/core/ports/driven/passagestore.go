package driven

import (
	"context"

	"github.com/didact-labs/didact/internal/core/domain"
)

// PassageStore provides read access to the ingested corpus.
type PassageStore interface {
	// ListPassages returns up to limit passages with their embeddings,
	// starting at offset, in a stable order. Passages of soft-deleted
	// documents are included; callers exclude them by document key.
	ListPassages(ctx context.Context, offset, limit int) ([]domain.Passage, error)

	// CountPassages returns the number of stored passages.
	CountPassages(ctx context.Context) (int, error)

	// DeletedDocumentKeys returns the keys of soft-deleted documents.
	DeletedDocumentKeys(ctx context.Context) ([]string, error)
}

// PassageWriter provides write access to the corpus.
type PassageWriter interface {
	// SaveDocument creates or updates a document record.
	SaveDocument(ctx context.Context, doc domain.DocumentRef) error

	// SavePassages stores passages. Their documents must exist.
	SavePassages(ctx context.Context, passages []domain.Passage) error

	// ListDocuments returns every document with its deletion state.
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)

	// SoftDeleteDocument marks a document deleted without removing its passages.
	SoftDeleteDocument(ctx context.Context, key string) error

	// RestoreDocument clears a soft delete.
	RestoreDocument(ctx context.Context, key string) error
}

// CorpusStore is a store providing both read and write access.
type CorpusStore interface {
	PassageStore
	PassageWriter
	Close() error
}
