package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
	"github.com/didact-labs/didact/internal/logger"
)

// GatherOptions configures one evidence gathering run.
type GatherOptions struct {
	Settings domain.AnswerSettings

	// Exclude lists passage names that must not be summarised.
	Exclude []string
}

// EvidenceGatherer turns retrieved passages into scored contexts.
type EvidenceGatherer struct {
	searcher PassageSearcher
	store    driven.PassageStore
	llm      driven.LLMService
	runner   *PromptRunner
	lambda   float64
	promptRef
}

// NewEvidenceGatherer creates an evidence gatherer. The store is consulted
// for soft-deleted documents and may be nil. llm summarises passages and
// may be nil only when summaries are skipped.
func NewEvidenceGatherer(
	searcher PassageSearcher,
	store driven.PassageStore,
	llm driven.LLMService,
	runner *PromptRunner,
	prompts domain.PromptSet,
	mmrLambda float64,
) *EvidenceGatherer {
	if runner == nil {
		runner = NewPromptRunner(nil)
	}
	return &EvidenceGatherer{
		searcher: searcher,
		store:    store,
		llm:      llm,
		runner:    runner,
		lambda:    mmrLambda,
		promptRef: promptRef{set: prompts},
	}
}

// exclusions is the set of passages and documents that must not be used.
type exclusions struct {
	names   map[string]struct{}
	docKeys map[string]struct{}
}

func (e exclusions) size() int {
	return len(e.names) + len(e.docKeys)
}

func (e exclusions) excludes(p domain.Passage) bool {
	if _, ok := e.names[p.Name]; ok {
		return true
	}
	_, ok := e.docKeys[p.Doc.Key]
	return ok && p.Doc.Key != ""
}

// Gather retrieves passages for the answer's question, summarises each one
// and appends the resulting contexts to the answer. Passages already in
// the answer, caller exclusions and soft-deleted documents are skipped.
// A failed summary omits its passage without failing the batch.
func (g *EvidenceGatherer) Gather(ctx context.Context, answer domain.Answer, opts GatherOptions) (domain.Answer, error) {
	logger.Section("Evidence Gathering")
	settings := opts.Settings

	excl, err := g.buildExclusions(ctx, answer, opts.Exclude)
	if err != nil {
		return answer, err
	}

	k := settings.EvidenceK + excl.size()
	logger.Debug("Requesting %d candidates (evidence_k=%d, excluded=%d)", k, settings.EvidenceK, excl.size())

	candidates, err := g.searcher.SearchMMR(ctx, answer.Question, k, 2*k, g.lambda)
	if err != nil {
		return answer, fmt.Errorf("retrieve passages: %w", err)
	}

	passages := make([]domain.Passage, 0, settings.EvidenceK)
	for _, c := range candidates {
		if excl.excludes(c.Passage) {
			continue
		}
		passages = append(passages, c.Passage)
		if len(passages) == settings.EvidenceK {
			break
		}
	}
	logger.Debug("Passages after exclusion: %d of %d", len(passages), len(candidates))

	var contexts []domain.Context
	var usage domain.Usage
	if settings.SkipSummary {
		contexts = passThroughContexts(passages)
	} else {
		contexts, usage = g.summarizeAll(ctx, answer.Question, passages, settings)
		if err := ctx.Err(); err != nil {
			return answer, fmt.Errorf("gather evidence: %w", err)
		}
	}

	answer.Contexts = append(append([]domain.Context(nil), answer.Contexts...), contexts...)
	answer.Usage.Merge(usage)
	logger.Info("Gathered %d contexts from %d passages", len(contexts), len(passages))
	return answer, nil
}

func (g *EvidenceGatherer) buildExclusions(ctx context.Context, answer domain.Answer, exclude []string) (exclusions, error) {
	excl := exclusions{
		names:   make(map[string]struct{}),
		docKeys: make(map[string]struct{}),
	}
	for _, n := range exclude {
		excl.names[n] = struct{}{}
	}
	for _, n := range answer.ContextNames() {
		excl.names[n] = struct{}{}
	}

	if g.store != nil {
		keys, err := g.store.DeletedDocumentKeys(ctx)
		if err != nil {
			return exclusions{}, fmt.Errorf("%w: list deleted documents: %w", domain.ErrRetrievalUnavailable, err)
		}
		for _, k := range keys {
			excl.docKeys[k] = struct{}{}
		}
	}
	return excl, nil
}

func passThroughContexts(passages []domain.Passage) []domain.Context {
	contexts := make([]domain.Context, 0, len(passages))
	for _, p := range passages {
		contexts = append(contexts, domain.Context{
			Passage: p,
			Summary: p.Text,
			Score:   domain.DefaultPassThroughScore,
		})
	}
	return contexts
}

// summarizeAll runs one summary per passage with at most
// MaxConcurrentRequests in flight. Results keep passage order.
func (g *EvidenceGatherer) summarizeAll(
	ctx context.Context, question string, passages []domain.Passage, settings domain.AnswerSettings,
) ([]domain.Context, domain.Usage) {
	results := make([]*domain.Context, len(passages))
	usages := make([]domain.Usage, len(passages))

	limit := settings.MaxConcurrentRequests
	if limit < 1 {
		limit = 1
	}

	var eg errgroup.Group
	eg.SetLimit(limit)
	for i, p := range passages {
		eg.Go(func() error {
			c, usage, err := g.summarize(ctx, question, p, settings)
			usages[i] = usage
			if err != nil {
				logger.With("passage", p.Name).Warn("summary failed", "err", err)
				return nil
			}
			results[i] = &c
			return nil
		})
	}
	_ = eg.Wait()

	var total domain.Usage
	contexts := make([]domain.Context, 0, len(passages))
	for i, c := range results {
		total.Merge(usages[i])
		if c != nil {
			contexts = append(contexts, *c)
		}
	}
	return contexts, total
}

func (g *EvidenceGatherer) summarize(
	ctx context.Context, question string, p domain.Passage, settings domain.AnswerSettings,
) (domain.Context, domain.Usage, error) {
	var usage domain.Usage

	if settings.SummaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.SummaryTimeout)
		defer cancel()
	}

	vars := map[string]any{
		"question":       question,
		"citation":       p.Name + ": " + p.Doc.Citation,
		"text":           p.Text,
		"summary_length": settings.SummaryLength,
	}

	prompts := g.current()
	tmpl, system := prompts.Summary, prompts.System
	if settings.UseJSON {
		tmpl, system = prompts.SummaryJSON, prompts.SummaryJSONSystem
	}

	started := time.Now()
	res, err := g.runner.Run(ctx, g.llm, tmpl, vars, system, settings.UseJSON)
	addUsage(&usage, res, g.llm)
	if err != nil {
		return domain.Context{}, usage, fmt.Errorf("%w: %w", domain.ErrSummarizationFailed, err)
	}
	logger.Debug("Summarised %q in %s", p.Name, time.Since(started).Round(time.Millisecond))

	c := domain.Context{Passage: p}
	if settings.UseJSON {
		parsed, err := parseSummaryJSON(res.Text)
		if err != nil {
			return domain.Context{}, usage, err
		}
		c.Summary = parsed.Summary
		c.Score = parsed.Score
		c.Points = parsed.Points
		c.Extra = parsed.Extra
	} else {
		c.Summary = strings.TrimSpace(stripCitations(res.Text))
		c.Score = extractScore(res.Text)
	}

	if ungrounded := c.UngroundedQuotes(); len(ungrounded) > 0 {
		logger.With("passage", p.Name).Warn("quotes not found verbatim in passage", "count", len(ungrounded))
	}
	return c, usage, nil
}

// addUsage records a completion's tokens. Calls that consumed nothing are skipped.
func addUsage(u *domain.Usage, res driven.Completion, llm driven.LLMService) {
	if res.PromptTokens == 0 && res.CompletionTokens == 0 {
		return
	}
	u.Add(modelOf(res, llm), res.PromptTokens, res.CompletionTokens)
}

func modelOf(res driven.Completion, llm driven.LLMService) string {
	if res.Model != "" {
		return res.Model
	}
	if llm != nil {
		return llm.ModelName()
	}
	return "unknown"
}
