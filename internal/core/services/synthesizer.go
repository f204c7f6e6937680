package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/didact-labs/didact/internal/citation"
	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
	"github.com/didact-labs/didact/internal/logger"
)

// minContextLength is the shortest context block worth sending to the model.
const minContextLength = 10

var extraBackgroundMarker = regexp.MustCompile(`\([Ee]xtra [Bb]ackground [Ii]nformation\)`)

// evidenceGatherer is satisfied by *EvidenceGatherer.
type evidenceGatherer interface {
	Gather(ctx context.Context, answer domain.Answer, opts GatherOptions) (domain.Answer, error)
}

// SynthesisOptions configures one synthesis run.
type SynthesisOptions struct {
	Settings domain.AnswerSettings

	// Exclude is passed to evidence gathering when the answer has no contexts.
	Exclude []string
}

// AnswerSynthesizer composes the final answer from gathered contexts.
type AnswerSynthesizer struct {
	gatherer evidenceGatherer
	llm      driven.LLMService
	runner   *PromptRunner
	tokens   driven.TokenCounter
	promptRef
}

// NewAnswerSynthesizer creates a synthesizer. A nil token counter falls
// back to a character-based estimate.
func NewAnswerSynthesizer(
	gatherer evidenceGatherer,
	llm driven.LLMService,
	runner *PromptRunner,
	prompts domain.PromptSet,
	tokens driven.TokenCounter,
) *AnswerSynthesizer {
	if runner == nil {
		runner = NewPromptRunner(nil)
	}
	if tokens == nil {
		tokens = runeEstimator{}
	}
	return &AnswerSynthesizer{
		gatherer: gatherer,
		llm:      llm,
		runner:    runner,
		tokens:    tokens,
		promptRef: promptRef{set: prompts},
	}
}

// Synthesize produces the answer text, bibliography and formatted answer.
// Evidence is gathered first if the answer has none. Insufficient context
// yields CannotAnswerText rather than an error.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, answer domain.Answer, opts SynthesisOptions) (domain.Answer, error) {
	settings := opts.Settings
	prompts := s.current()

	if len(answer.Contexts) == 0 && s.gatherer != nil {
		var err error
		answer, err = s.gatherer.Gather(ctx, answer, GatherOptions{Settings: settings, Exclude: opts.Exclude})
		if err != nil {
			return answer, err
		}
	}

	logger.Section("Answer Synthesis")

	background, err := s.runOptional(ctx, &answer, prompts.Pre, prompts.System, map[string]any{"question": answer.Question})
	if err != nil {
		return answer, fmt.Errorf("%w: pre prompt: %w", domain.ErrSynthesisFailed, err)
	}

	answer.FilteredContexts = rankContexts(answer.Contexts, settings.AnswerMaxSources)

	blocks, err := s.renderContexts(answer.FilteredContexts, prompts.ContextInner, settings)
	if err != nil {
		return answer, fmt.Errorf("%w: %w", domain.ErrSynthesisFailed, err)
	}
	if settings.MaxContextTokens > 0 {
		blocks = s.fitBudget(blocks, background, settings.MaxContextTokens)
		answer.FilteredContexts = answer.FilteredContexts[:len(blocks)]
	}

	parts := append([]string(nil), blocks...)
	if background != "" {
		parts = append(parts, "Extra background information: "+background)
	}

	validKeys := make([]string, 0, len(answer.FilteredContexts))
	for _, c := range answer.FilteredContexts {
		validKeys = append(validKeys, c.Name())
	}

	answer.Context, err = s.runner.Render(prompts.ContextOuter, map[string]any{
		"context_str": strings.Join(parts, "\n\n"),
		"valid_keys":  strings.Join(validKeys, ", "),
	})
	if err != nil {
		return answer, fmt.Errorf("%w: render context: %w", domain.ErrSynthesisFailed, err)
	}
	logger.Debug("Context: %d contexts, %d characters", len(answer.FilteredContexts), utf8.RuneCountInString(answer.Context))

	text := domain.CannotAnswerText
	if utf8.RuneCountInString(answer.Context) >= minContextLength {
		res, err := s.runner.Run(ctx, s.llm, prompts.QA, map[string]any{
			"context":                answer.Context,
			"answer_length":          settings.AnswerLength,
			"question":               answer.Question,
			"example_citation":       prompts.ExampleCitation,
			"example_citation_quote": prompts.ExampleCitationQuote,
		}, prompts.System, false)
		addUsage(&answer.Usage, res, s.llm)
		if err != nil {
			return answer, fmt.Errorf("%w: %w", domain.ErrSynthesisFailed, err)
		}
		text = res.Text
	} else {
		logger.Info("Context too short, skipping answer generation")
	}

	if prompts.ExampleCitation != "" {
		text = strings.ReplaceAll(text, prompts.ExampleCitation, "")
	}

	if collisions := citation.PrefixCollisions(validKeys); len(collisions) > 0 {
		logger.Debug("Context names share prefixes: %v", collisions)
	}
	answer.Bibliography = buildBibliography(answer.FilteredContexts, text)
	answer.References = formatReferences(answer.Bibliography)

	if settings.FilterExtraBackground {
		text = extraBackgroundMarker.ReplaceAllString(text, "")
	}
	answer.Text = text
	answer.FormattedAnswer = formatAnswer(answer.Question, answer.Text, answer.References)

	post, err := s.runOptional(ctx, &answer, prompts.Post, prompts.System, map[string]any{
		"question":         answer.Question,
		"answer":           answer.Text,
		"formatted_answer": answer.FormattedAnswer,
		"references":       answer.References,
		"context":          answer.Context,
		"contexts":         answer.FilteredContexts,
		"bibliography":     answer.Bibliography.Entries(),
	})
	if err != nil {
		return answer, fmt.Errorf("%w: post prompt: %w", domain.ErrSynthesisFailed, err)
	}
	if post != "" {
		answer.Text = post
		answer.FormattedAnswer = formatAnswer(answer.Question, answer.Text, answer.References)
	}

	logger.Info("Answer: %d characters, %d sources cited", len(answer.Text), answer.Bibliography.Len())
	return answer, nil
}

// runOptional runs a template that may be empty. An empty template is a no-op.
func (s *AnswerSynthesizer) runOptional(
	ctx context.Context, answer *domain.Answer, tmpl, system string, vars map[string]any,
) (string, error) {
	if strings.TrimSpace(tmpl) == "" {
		return "", nil
	}
	res, err := s.runner.Run(ctx, s.llm, tmpl, vars, system, false)
	addUsage(&answer.Usage, res, s.llm)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

func (s *AnswerSynthesizer) renderContexts(contexts []domain.Context, tmpl string, settings domain.AnswerSettings) ([]string, error) {
	if !settings.DetailedCitations {
		tmpl = strings.ReplaceAll(tmpl, domain.DetailedCitationLine, "")
	}

	blocks := make([]string, 0, len(contexts))
	for _, c := range contexts {
		vars := make(map[string]any, len(c.Extra)+4)
		for k, v := range c.Extra {
			vars[k] = v
		}
		vars["name"] = c.Name()
		vars["text"] = c.Summary
		vars["quotes"] = formatQuotes(c.Points)
		vars["citation"] = c.Passage.Doc.Citation

		block, err := s.runner.Render(tmpl, vars)
		if err != nil {
			return nil, fmt.Errorf("render context %q: %w", c.Name(), err)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// fitBudget drops the lowest-ranked blocks until the context fits maxTokens.
// The background text always counts against the budget.
func (s *AnswerSynthesizer) fitBudget(blocks []string, background string, maxTokens int) []string {
	used := s.tokens.CountTokens(background)
	for i, b := range blocks {
		used += s.tokens.CountTokens(b)
		if used > maxTokens {
			logger.Debug("Token budget %d reached, keeping %d of %d contexts", maxTokens, i, len(blocks))
			return blocks[:i]
		}
	}
	return blocks
}

// rankContexts keeps contexts scored above zero, ordered by score then
// name, and truncated to limit.
func rankContexts(contexts []domain.Context, limit int) []domain.Context {
	ranked := make([]domain.Context, 0, len(contexts))
	for _, c := range contexts {
		if c.Score > 0 {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Name() < ranked[j].Name()
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func formatQuotes(points []domain.Point) string {
	lines := make([]string, 0, len(points))
	for i, p := range points {
		lines = append(lines, fmt.Sprintf("quote%d: \"%s\"", i+1, p.Quote))
	}
	return strings.Join(lines, "\n")
}

func buildBibliography(contexts []domain.Context, text string) domain.Bibliography {
	var bib domain.Bibliography
	for _, c := range contexts {
		if citation.NameInText(c.Name(), text) {
			bib.Add(c)
		}
	}
	return bib
}

func formatReferences(bib domain.Bibliography) string {
	entries := bib.Entries()
	lines := make([]string, 0, len(entries))
	for i, c := range entries {
		lines = append(lines, fmt.Sprintf("%d. (%s): %s", i+1, c.Name(), c.Passage.Doc.Citation))
	}
	return strings.Join(lines, "\n\n")
}

func formatAnswer(question, text, references string) string {
	out := fmt.Sprintf("Question: %s\n\n%s\n", question, text)
	if references != "" {
		out += fmt.Sprintf("\nReferences\n\n%s\n", references)
	}
	return out
}
