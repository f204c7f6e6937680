package mcp

import (
	"context"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	resp     *domain.QueryResponse
	err      error
	question string
	opts     driving.AskOptions
}

func (m *mockQueryService) Ask(_ context.Context, question string, opts driving.AskOptions) (*domain.QueryResponse, error) {
	m.question = question
	m.opts = opts
	return m.resp, m.err
}

func (m *mockQueryService) Query(_ context.Context, question string, opts driving.AskOptions) (*domain.Answer, error) {
	m.question = question
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	a := domain.NewAnswer(question)
	return &a, nil
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.DocumentInfo
	err       error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDocumentService) Restore(_ context.Context, _ string) error {
	return m.err
}
