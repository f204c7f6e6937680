package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didact-labs/didact/internal/core/domain"
)

type mapPromptStore struct {
	prompts map[string]string
	err     error
}

func (s mapPromptStore) Load(name string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	p, ok := s.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (s mapPromptStore) Reload() {}

func TestLoadPromptSet_Defaults(t *testing.T) {
	set, err := LoadPromptSet(nil, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPromptSet(), set)
}

func TestLoadPromptSet_Overrides(t *testing.T) {
	store := mapPromptStore{prompts: map[string]string{
		"qa":  "Q: {{.question}}\n{{.context}}",
		"pre": "Background on {{.question}}",
	}}

	set, err := LoadPromptSet(store, nil)

	require.NoError(t, err)
	assert.Equal(t, "Q: {{.question}}\n{{.context}}", set.QA)
	assert.Equal(t, "Background on {{.question}}", set.Pre)
	assert.Equal(t, domain.DefaultPromptSet().Summary, set.Summary)
}

func TestLoadPromptSet_RejectsUnknownVariable(t *testing.T) {
	store := mapPromptStore{prompts: map[string]string{"qa": "{{.question}} {{.secret}}"}}

	_, err := LoadPromptSet(store, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidTemplate)
}

func TestLoadPromptSet_StoreError(t *testing.T) {
	_, err := LoadPromptSet(mapPromptStore{err: errBoom}, nil)

	assert.ErrorIs(t, err, errBoom)
}

func TestReloadPrompts_SwapsActiveSet(t *testing.T) {
	store := mapPromptStore{prompts: map[string]string{}}
	llm := replyLLM("Blue (Doe2020 pages 1-2).")
	gatherer := NewEvidenceGatherer(nil, nil, llm, nil, domain.DefaultPromptSet(), 1)
	synth := NewAnswerSynthesizer(nil, llm, nil, domain.DefaultPromptSet(), nil)

	store.prompts["qa"] = "Reloaded: {{.question}}\n{{.context}}"
	store.prompts["summary"] = "Short {{.text}} {{.question}}"
	require.NoError(t, ReloadPrompts(store, nil, gatherer, synth))
	assert.Equal(t, "Short {{.text}} {{.question}}", gatherer.current().Summary)

	_, err := synth.Synthesize(context.Background(), answerWith("Why?",
		testContext(doePassage, "Scattering.", 8),
	), SynthesisOptions{Settings: synthSettings()})
	require.NoError(t, err)
	calls := llm.calls()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(calls[0].Prompt, "Reloaded: Why?"))
}

func TestReloadPrompts_InvalidSetKeepsCurrent(t *testing.T) {
	synth := NewAnswerSynthesizer(nil, nil, nil, domain.DefaultPromptSet(), nil)
	store := mapPromptStore{prompts: map[string]string{"qa": "{{.secret}}"}}

	err := ReloadPrompts(store, nil, synth)

	assert.ErrorIs(t, err, domain.ErrInvalidTemplate)
	assert.Equal(t, domain.DefaultPromptSet().QA, synth.current().QA)
}

func TestPromptRunner_Run(t *testing.T) {
	llm := replyLLM("done")
	runner := NewPromptRunner(nil)

	res, err := runner.Run(context.Background(), llm, "Hello {{.name}}", map[string]any{"name": "Doe"}, "Be {{.name}}", true)

	require.NoError(t, err)
	assert.Equal(t, "done", res.Text)
	req := llm.calls()[0]
	assert.Equal(t, "Hello Doe", req.Prompt)
	assert.Equal(t, "Be Doe", req.System)
	assert.True(t, req.JSON)
}

func TestPromptRunner_Run_Errors(t *testing.T) {
	runner := NewPromptRunner(nil)

	_, err := runner.Run(context.Background(), nil, "x", nil, "", false)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = runner.Run(context.Background(), replyLLM("x"), "{{.missing}}", map[string]any{}, "", false)
	assert.Error(t, err)
}

func TestRuneEstimator(t *testing.T) {
	var est runeEstimator
	assert.Equal(t, 0, est.CountTokens(""))
	assert.Equal(t, 1, est.CountTokens("abcd"))
	assert.Equal(t, 2, est.CountTokens("abcde"))
	assert.Equal(t, 1, est.CountTokens("日本"))
}
