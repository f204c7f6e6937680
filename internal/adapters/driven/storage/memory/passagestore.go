package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// Ensure PassageStore implements the interface.
var _ driven.CorpusStore = (*PassageStore)(nil)

type document struct {
	ref       domain.DocumentRef
	createdAt time.Time
	deletedAt *time.Time
}

// PassageStore is an in-memory implementation of driven.CorpusStore.
// Passages are listed in insertion order.
type PassageStore struct {
	mu        sync.RWMutex
	documents map[string]*document
	passages  []domain.Passage
	index     map[string]int
	now       func() time.Time
}

// NewPassageStore creates a new in-memory passage store.
func NewPassageStore() *PassageStore {
	return &PassageStore{
		documents: make(map[string]*document),
		index:     make(map[string]int),
		now:       time.Now,
	}
}

// SaveDocument creates or updates a document record.
func (s *PassageStore) SaveDocument(_ context.Context, doc domain.DocumentRef) error {
	if doc.Key == "" {
		return fmt.Errorf("%w: document key is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.documents[doc.Key]; ok {
		existing.ref = doc
		return nil
	}
	s.documents[doc.Key] = &document{ref: doc, createdAt: s.now()}
	return nil
}

// SavePassages stores passages, replacing any with the same name.
func (s *PassageStore) SavePassages(_ context.Context, passages []domain.Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range passages {
		if _, ok := s.documents[p.Doc.Key]; !ok {
			return fmt.Errorf("passage %q: document %q: %w", p.Name, p.Doc.Key, domain.ErrNotFound)
		}
	}
	for _, p := range passages {
		p.Embedding = append([]float32(nil), p.Embedding...)
		if i, ok := s.index[p.Name]; ok {
			s.passages[i] = p
			continue
		}
		s.index[p.Name] = len(s.passages)
		s.passages = append(s.passages, p)
	}
	return nil
}

// ListPassages returns up to limit passages starting at offset.
func (s *PassageStore) ListPassages(_ context.Context, offset, limit int) ([]domain.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must not be negative", domain.ErrInvalidInput)
	}
	if offset >= len(s.passages) {
		return []domain.Passage{}, nil
	}
	end := offset + limit
	if end > len(s.passages) {
		end = len(s.passages)
	}
	out := make([]domain.Passage, end-offset)
	copy(out, s.passages[offset:end])
	return out, nil
}

// CountPassages returns the number of stored passages.
func (s *PassageStore) CountPassages(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages), nil
}

// DeletedDocumentKeys returns the keys of soft-deleted documents, sorted.
func (s *PassageStore) DeletedDocumentKeys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key, doc := range s.documents {
		if doc.deletedAt != nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ListDocuments returns every document sorted by key.
func (s *PassageStore) ListDocuments(_ context.Context) ([]domain.DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.documents))
	for _, p := range s.passages {
		counts[p.Doc.Key]++
	}

	docs := make([]domain.DocumentInfo, 0, len(s.documents))
	for key, doc := range s.documents {
		docs = append(docs, domain.DocumentInfo{
			DocumentRef: doc.ref,
			Passages:    counts[key],
			CreatedAt:   doc.createdAt,
			DeletedAt:   doc.deletedAt,
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	return docs, nil
}

// SoftDeleteDocument marks a document deleted. Deleting twice keeps the first timestamp.
func (s *PassageStore) SoftDeleteDocument(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[key]
	if !ok {
		return domain.ErrNotFound
	}
	if doc.deletedAt == nil {
		now := s.now()
		doc.deletedAt = &now
	}
	return nil
}

// RestoreDocument clears a soft delete.
func (s *PassageStore) RestoreDocument(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[key]
	if !ok {
		return domain.ErrNotFound
	}
	doc.deletedAt = nil
	return nil
}

// Close is a no-op.
func (s *PassageStore) Close() error {
	return nil
}
