package driving

import (
	"context"

	"github.com/didact-labs/didact/internal/core/domain"
)

// QueryService answers questions over the ingested corpus.
type QueryService interface {
	// Ask runs retrieval, evidence gathering, synthesis and citation
	// tagging for a question and returns the boundary response.
	Ask(ctx context.Context, question string, opts AskOptions) (*domain.QueryResponse, error)

	// Query runs the same pipeline and returns the full answer record.
	Query(ctx context.Context, question string, opts AskOptions) (*domain.Answer, error)
}

// AskOptions overrides answer settings for a single query.
// Zero values keep the configured settings.
type AskOptions struct {
	// EvidenceK overrides the number of passages summarised.
	EvidenceK int

	// MaxSources overrides the number of contexts used for the answer.
	MaxSources int

	// SkipSummary uses raw passages as evidence.
	SkipSummary bool

	// Exclude lists passage names that must not be used as evidence.
	Exclude []string
}
