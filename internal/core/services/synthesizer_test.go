package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// fixedCounter counts every non-empty text as the same number of tokens.
type fixedCounter int

func (c fixedCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(c)
}

// stubGatherer appends fixed contexts.
type stubGatherer struct {
	contexts []domain.Context
	err      error
	opts     GatherOptions
	calls    int
}

func (g *stubGatherer) Gather(_ context.Context, answer domain.Answer, opts GatherOptions) (domain.Answer, error) {
	g.calls++
	g.opts = opts
	if g.err != nil {
		return answer, g.err
	}
	answer.Contexts = append(answer.Contexts, g.contexts...)
	return answer, nil
}

func answerWith(question string, contexts ...domain.Context) domain.Answer {
	a := domain.NewAnswer(question)
	a.Contexts = contexts
	return a
}

func synthSettings() domain.AnswerSettings {
	return domain.DefaultAnswerSettings()
}

var (
	doePassage = testPassage("Doe2020", 1, 2, "Rayleigh scattering makes the sky blue.")
	roePassage = testPassage("Roe2019", 3, 4, "Sunsets are red.")
)

func TestAnswerSynthesizer_CitesAndFormats(t *testing.T) {
	llm := replyLLM("The sky is blue (Doe2020 pages 1-2).")
	s := NewAnswerSynthesizer(nil, llm, nil, domain.DefaultPromptSet(), nil)

	answer, err := s.Synthesize(context.Background(), answerWith("Why is the sky blue?",
		testContext(doePassage, "Scattering.", 8, domain.Point{Quote: "Rayleigh scattering"}),
		testContext(roePassage, "Sunsets.", 4),
	), SynthesisOptions{Settings: synthSettings()})

	require.NoError(t, err)
	assert.Equal(t, "The sky is blue (Doe2020 pages 1-2).", answer.Text)
	assert.Equal(t, []string{doePassage.Name}, answer.Bibliography.Names())
	assert.Equal(t, "1. (Doe2020 pages 1-2): Doe2020, Journal of Tests.", answer.References)
	assert.Equal(t,
		"Question: Why is the sky blue?\n\nThe sky is blue (Doe2020 pages 1-2).\n"+
			"\nReferences\n\n1. (Doe2020 pages 1-2): Doe2020, Journal of Tests.\n",
		answer.FormattedAnswer)

	assert.Contains(t, answer.Context, "Doe2020 pages 1-2: Scattering.\nquote1: \"Rayleigh scattering\"\nFrom Doe2020, Journal of Tests.")
	assert.Contains(t, answer.Context, "Valid Keys: Doe2020 pages 1-2, Roe2019 pages 3-4")

	calls := llm.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Question: Why is the sky blue?")
	assert.Contains(t, calls[0].Prompt, domain.DefaultExampleCitation)
	assert.Equal(t, domain.DefaultPromptSet().System, calls[0].System)
	assert.Equal(t, 15, answer.Usage.Total())
}

func TestAnswerSynthesizer_InsufficientContext(t *testing.T) {
	llm := replyLLM("should not be called")
	s := NewAnswerSynthesizer(nil, llm, nil, domain.DefaultPromptSet(), nil)

	answer, err := s.Synthesize(context.Background(), answerWith("q",
		testContext(doePassage, "irrelevant", 0),
	), SynthesisOptions{Settings: synthSettings()})

	require.NoError(t, err)
	assert.Equal(t, domain.CannotAnswerText, answer.Text)
	assert.Empty(t, answer.FilteredContexts)
	assert.Zero(t, answer.Bibliography.Len())
	assert.Equal(t, "Question: q\n\n"+domain.CannotAnswerText+"\n", answer.FormattedAnswer)
	assert.NotContains(t, answer.FormattedAnswer, "References")
	assert.Empty(t, llm.calls())
}

func TestAnswerSynthesizer_RanksAndTruncates(t *testing.T) {
	s := NewAnswerSynthesizer(nil, replyLLM("answer"), nil, domain.DefaultPromptSet(), nil)
	settings := synthSettings()
	settings.AnswerMaxSources = 3

	answer, err := s.Synthesize(context.Background(), answerWith("q",
		testContext(testPassage("Zed2020", 1, 1, "z"), "z", 8),
		testContext(testPassage("Low2020", 1, 1, "l"), "l", 3),
		testContext(testPassage("Abe2020", 1, 1, "a"), "a", 8),
		testContext(testPassage("Nil2020", 1, 1, "n"), "n", 0),
		testContext(testPassage("Mid2020", 1, 1, "m"), "m", 5),
	), SynthesisOptions{Settings: settings})

	require.NoError(t, err)
	got := make([]string, 0, len(answer.FilteredContexts))
	for _, c := range answer.FilteredContexts {
		got = append(got, c.Name())
	}
	assert.Equal(t, []string{"Abe2020 pages 1-1", "Zed2020 pages 1-1", "Mid2020 pages 1-1"}, got)
	assert.Len(t, answer.Contexts, 5)
}

func TestAnswerSynthesizer_WholeTokenCitationMatch(t *testing.T) {
	short := testPassage("Doe2020", 1, 2, "a")
	long := testPassage("Doe2020", 1, 20, "b")
	s := NewAnswerSynthesizer(nil, replyLLM("Claim (Doe2020 pages 1-20)."), nil, domain.DefaultPromptSet(), nil)

	answer, err := s.Synthesize(context.Background(), answerWith("q",
		testContext(short, "first summary", 6),
		testContext(long, "second summary", 5),
	), SynthesisOptions{Settings: synthSettings()})

	require.NoError(t, err)
	assert.Equal(t, []string{long.Name}, answer.Bibliography.Names())
}

func TestAnswerSynthesizer_StripsExampleCitationAndBackgroundMarker(t *testing.T) {
	text := "Blue " + domain.DefaultExampleCitation + " light (Extra background information) scatters (Doe2020 pages 1-2)."
	s := NewAnswerSynthesizer(nil, replyLLM(text), nil, domain.DefaultPromptSet(), nil)
	settings := synthSettings()
	settings.FilterExtraBackground = true

	answer, err := s.Synthesize(context.Background(), answerWith("q",
		testContext(doePassage, "Scattering.", 8),
	), SynthesisOptions{Settings: settings})

	require.NoError(t, err)
	assert.Equal(t, "Blue  light  scatters (Doe2020 pages 1-2).", answer.Text)
	assert.Equal(t, 1, answer.Bibliography.Len())
}

func TestAnswerSynthesizer_DetailedCitationsOff(t *testing.T) {
	s := NewAnswerSynthesizer(nil, replyLLM("answer"), nil, domain.DefaultPromptSet(), nil)
	settings := synthSettings()
	settings.DetailedCitations = false

	answer, err := s.Synthesize(context.Background(), answerWith("q",
		testContext(doePassage, "Scattering.", 8),
	), SynthesisOptions{Settings: settings})

	require.NoError(t, err)
	assert.NotContains(t, answer.Context, "From ")
	assert.NotContains(t, answer.Context, doePassage.Doc.Citation)
}

func TestAnswerSynthesizer_PreAndPostSteps(t *testing.T) {
	prompts := domain.DefaultPromptSet()
	prompts.Pre = "Background for {{.question}}"
	prompts.Post = "Polish: {{.answer}}"
	llm := newFakeLLM(func(_ context.Context, req driven.CompletionRequest) (driven.Completion, error) {
		switch {
		case strings.HasPrefix(req.Prompt, "Background for"):
			return driven.Completion{Text: " Light scatters. "}, nil
		case strings.HasPrefix(req.Prompt, "Polish:"):
			return driven.Completion{Text: "Polished answer (Doe2020 pages 1-2)."}, nil
		default:
			return driven.Completion{Text: "Raw answer (Doe2020 pages 1-2)."}, nil
		}
	})
	s := NewAnswerSynthesizer(nil, llm, nil, prompts, nil)

	answer, err := s.Synthesize(context.Background(), answerWith("Why?",
		testContext(doePassage, "Scattering.", 8),
	), SynthesisOptions{Settings: synthSettings()})

	require.NoError(t, err)
	assert.Contains(t, answer.Context, "\n\nExtra background information: Light scatters.")
	assert.Equal(t, "Polished answer (Doe2020 pages 1-2).", answer.Text)
	assert.Contains(t, answer.FormattedAnswer, "Polished answer")
	assert.Contains(t, answer.FormattedAnswer, "References")

	calls := llm.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "Background for Why?", calls[0].Prompt)
	assert.Equal(t, "Polish: Raw answer (Doe2020 pages 1-2).", calls[2].Prompt)
}

func TestAnswerSynthesizer_PostSeesContextsAndBibliography(t *testing.T) {
	prompts := domain.DefaultPromptSet()
	prompts.Post = "Review {{len .contexts}} contexts:{{range .bibliography}} {{.Name}}{{end}}"
	llm := newFakeLLM(func(_ context.Context, req driven.CompletionRequest) (driven.Completion, error) {
		if strings.HasPrefix(req.Prompt, "Review") {
			return driven.Completion{Text: "Reviewed (Doe2020 pages 1-2)."}, nil
		}
		return driven.Completion{Text: "Raw answer (Doe2020 pages 1-2)."}, nil
	})
	s := NewAnswerSynthesizer(nil, llm, nil, prompts, nil)

	answer, err := s.Synthesize(context.Background(), answerWith("Why?",
		testContext(doePassage, "Scattering.", 8),
		testContext(roePassage, "Sunsets.", 4),
	), SynthesisOptions{Settings: synthSettings()})

	require.NoError(t, err)
	assert.Equal(t, "Reviewed (Doe2020 pages 1-2).", answer.Text)

	calls := llm.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Review 2 contexts: Doe2020 pages 1-2", calls[1].Prompt)
}

func TestAnswerSynthesizer_BackgroundAloneIsEnoughContext(t *testing.T) {
	prompts := domain.DefaultPromptSet()
	prompts.Pre = "Background for {{.question}}"
	llm := newFakeLLM(func(_ context.Context, req driven.CompletionRequest) (driven.Completion, error) {
		if strings.HasPrefix(req.Prompt, "Background for") {
			return driven.Completion{Text: "General knowledge about optics."}, nil
		}
		return driven.Completion{Text: "An answer."}, nil
	})
	s := NewAnswerSynthesizer(nil, llm, nil, prompts, nil)

	answer, err := s.Synthesize(context.Background(), answerWith("q"), SynthesisOptions{Settings: synthSettings()})

	require.NoError(t, err)
	assert.Equal(t, "An answer.", answer.Text)
	assert.Contains(t, answer.Context, "Valid Keys: ")
}

func TestAnswerSynthesizer_TokenBudget(t *testing.T) {
	s := NewAnswerSynthesizer(nil, replyLLM("answer"), nil, domain.DefaultPromptSet(), fixedCounter(10))
	settings := synthSettings()
	settings.MaxContextTokens = 25

	answer, err := s.Synthesize(context.Background(), answerWith("q",
		testContext(testPassage("Abe2020", 1, 1, "a"), "a", 9),
		testContext(testPassage("Bee2020", 1, 1, "b"), "b", 8),
		testContext(testPassage("Cee2020", 1, 1, "c"), "c", 7),
	), SynthesisOptions{Settings: settings})

	require.NoError(t, err)
	require.Len(t, answer.FilteredContexts, 2)
	assert.NotContains(t, answer.Context, "Cee2020")
}

func TestAnswerSynthesizer_ExtraFieldsInContextTemplate(t *testing.T) {
	prompts := domain.DefaultPromptSet()
	prompts.ContextInner = "{{.name}} [{{.section}}]: {{.text}}"
	s := NewAnswerSynthesizer(nil, replyLLM("answer"), nil, prompts, nil)

	c := testContext(doePassage, "Scattering.", 8)
	c.Extra = map[string]any{"section": "Results", "name": "ignored"}
	answer, err := s.Synthesize(context.Background(), answerWith("q", c), SynthesisOptions{Settings: synthSettings()})

	require.NoError(t, err)
	assert.Contains(t, answer.Context, "Doe2020 pages 1-2 [Results]: Scattering.")
}

func TestAnswerSynthesizer_GathersWhenEmpty(t *testing.T) {
	gatherer := &stubGatherer{contexts: []domain.Context{testContext(doePassage, "Scattering.", 8)}}
	s := NewAnswerSynthesizer(gatherer, replyLLM("Blue (Doe2020 pages 1-2)."), nil, domain.DefaultPromptSet(), nil)

	answer, err := s.Synthesize(context.Background(), domain.NewAnswer("q"), SynthesisOptions{
		Settings: synthSettings(),
		Exclude:  []string{"Roe2019 pages 3-4"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, gatherer.calls)
	assert.Equal(t, []string{"Roe2019 pages 3-4"}, gatherer.opts.Exclude)
	assert.Equal(t, 1, answer.Bibliography.Len())

	// Existing contexts skip gathering.
	_, err = s.Synthesize(context.Background(), answer, SynthesisOptions{Settings: synthSettings()})
	require.NoError(t, err)
	assert.Equal(t, 1, gatherer.calls)
}

func TestAnswerSynthesizer_Errors(t *testing.T) {
	t.Run("gather failure", func(t *testing.T) {
		s := NewAnswerSynthesizer(&stubGatherer{err: domain.ErrRetrievalUnavailable}, replyLLM("x"), nil, domain.DefaultPromptSet(), nil)
		_, err := s.Synthesize(context.Background(), domain.NewAnswer("q"), SynthesisOptions{Settings: synthSettings()})
		assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
	})

	t.Run("answer failure", func(t *testing.T) {
		llm := newFakeLLM(func(context.Context, driven.CompletionRequest) (driven.Completion, error) {
			return driven.Completion{}, errBoom
		})
		s := NewAnswerSynthesizer(nil, llm, nil, domain.DefaultPromptSet(), nil)
		_, err := s.Synthesize(context.Background(), answerWith("q", testContext(doePassage, "Scattering.", 8)),
			SynthesisOptions{Settings: synthSettings()})
		assert.ErrorIs(t, err, domain.ErrSynthesisFailed)
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("no model", func(t *testing.T) {
		s := NewAnswerSynthesizer(nil, nil, nil, domain.DefaultPromptSet(), nil)
		_, err := s.Synthesize(context.Background(), answerWith("q", testContext(doePassage, "Scattering.", 8)),
			SynthesisOptions{Settings: synthSettings()})
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})
}
