package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/didact-labs/didact/internal/citation"
	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driving"
	"github.com/didact-labs/didact/internal/logger"
)

var _ driving.QueryService = (*QueryService)(nil)

// answerSynthesizer is satisfied by *AnswerSynthesizer.
type answerSynthesizer interface {
	Synthesize(ctx context.Context, answer domain.Answer, opts SynthesisOptions) (domain.Answer, error)
}

// QueryService runs the full question answering pipeline.
type QueryService struct {
	synthesizer answerSynthesizer
	settings    domain.AnswerSettings
}

// NewQueryService creates a query service with the configured answer settings.
func NewQueryService(synthesizer answerSynthesizer, settings domain.AnswerSettings) *QueryService {
	return &QueryService{
		synthesizer: synthesizer,
		settings:    settings,
	}
}

// Ask answers a question and returns the boundary response.
func (s *QueryService) Ask(ctx context.Context, question string, opts driving.AskOptions) (*domain.QueryResponse, error) {
	answer, err := s.Query(ctx, question, opts)
	if err != nil {
		return nil, err
	}
	resp := domain.NewQueryResponse(*answer)
	return &resp, nil
}

// Query answers a question and returns the full answer record.
func (s *QueryService) Query(ctx context.Context, question string, opts driving.AskOptions) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	settings := s.settingsFor(opts)
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	answer := domain.NewAnswer(question)
	logger.Debug("Query %s: %q", answer.ID, question)

	answer, err := s.synthesizer.Synthesize(ctx, answer, SynthesisOptions{
		Settings: settings,
		Exclude:  opts.Exclude,
	})
	if err != nil {
		return nil, err
	}

	answer.TaggedText = citation.Tag(strings.TrimSpace(answer.Text), citation.DocNames(answer.Bibliography.Entries()))

	logger.Info("Query %s: %d contexts, %d cited, %d tokens", answer.ID,
		len(answer.Contexts), answer.Bibliography.Len(), answer.Usage.Total())
	return &answer, nil
}

func (s *QueryService) settingsFor(opts driving.AskOptions) domain.AnswerSettings {
	settings := s.settings
	if opts.EvidenceK > 0 {
		settings.EvidenceK = opts.EvidenceK
	}
	if opts.MaxSources > 0 {
		settings.AnswerMaxSources = opts.MaxSources
	}
	if opts.SkipSummary {
		settings.SkipSummary = true
	}
	return settings
}
