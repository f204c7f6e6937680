package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
	"github.com/didact-labs/didact/internal/core/ports/driving"
	"github.com/didact-labs/didact/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// PoolRefresher drops a cached passage pool so the next search reloads it.
type PoolRefresher interface {
	Refresh()
}

// DocumentService manages documents already in the corpus.
// Soft deletion takes effect on the next query. Evidence gathering excludes
// deleted documents by key, and a registered refresher reloads the passage
// pool after every delete or restore.
type DocumentService struct {
	store driven.PassageWriter

	mu        sync.Mutex
	refresher PoolRefresher
}

// NewDocumentService creates a new document service.
func NewDocumentService(store driven.PassageWriter) *DocumentService {
	return &DocumentService{store: store}
}

// SetRefresher registers the pool to refresh after a delete or restore.
// A nil refresher disables refreshing.
func (s *DocumentService) SetRefresher(r PoolRefresher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresher = r
}

// List returns all documents including soft-deleted ones.
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: no corpus store configured", domain.ErrRetrievalUnavailable)
	}
	return s.store.ListDocuments(ctx)
}

// Delete soft-deletes a document by key.
func (s *DocumentService) Delete(ctx context.Context, key string) error {
	key, err := s.checkKey(key)
	if err != nil {
		return err
	}
	if err := s.store.SoftDeleteDocument(ctx, key); err != nil {
		return fmt.Errorf("delete document %q: %w", key, err)
	}
	logger.Info("Soft-deleted document %s", key)
	s.refresh()
	return nil
}

// Restore reverses a soft delete.
func (s *DocumentService) Restore(ctx context.Context, key string) error {
	key, err := s.checkKey(key)
	if err != nil {
		return err
	}
	if err := s.store.RestoreDocument(ctx, key); err != nil {
		return fmt.Errorf("restore document %q: %w", key, err)
	}
	logger.Info("Restored document %s", key)
	s.refresh()
	return nil
}

func (s *DocumentService) checkKey(key string) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("%w: no corpus store configured", domain.ErrRetrievalUnavailable)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: document key is required", domain.ErrInvalidInput)
	}
	return key, nil
}

func (s *DocumentService) refresh() {
	s.mu.Lock()
	r := s.refresher
	s.mu.Unlock()
	if r != nil {
		r.Refresh()
		logger.Debug("Passage pool refreshed")
	}
}
