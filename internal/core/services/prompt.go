package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
	"github.com/didact-labs/didact/internal/logger"
	"github.com/didact-labs/didact/internal/tplengine"
)

// PromptRunner renders a prompt template and runs it against a model.
type PromptRunner struct {
	engine *tplengine.Engine
}

// NewPromptRunner creates a prompt runner over a template engine.
func NewPromptRunner(engine *tplengine.Engine) *PromptRunner {
	if engine == nil {
		engine = tplengine.NewEngine()
	}
	return &PromptRunner{engine: engine}
}

// Render renders a template with the given variables.
func (r *PromptRunner) Render(tmpl string, vars map[string]any) (string, error) {
	return r.engine.Render(tmpl, vars)
}

// Run renders the prompt and system templates with vars and requests a
// completion. The system template is rendered with the same variables.
func (r *PromptRunner) Run(
	ctx context.Context,
	llm driven.LLMService,
	tmpl string,
	vars map[string]any,
	system string,
	jsonMode bool,
) (driven.Completion, error) {
	if llm == nil {
		return driven.Completion{}, domain.ErrLLMUnavailable
	}

	prompt, err := r.engine.Render(tmpl, vars)
	if err != nil {
		return driven.Completion{}, fmt.Errorf("render prompt: %w", err)
	}
	sys, err := r.engine.Render(system, vars)
	if err != nil {
		return driven.Completion{}, fmt.Errorf("render system prompt: %w", err)
	}

	return llm.Complete(ctx, driven.CompletionRequest{
		System: sys,
		Prompt: prompt,
		JSON:   jsonMode,
	})
}

// LoadPromptSet overlays prompt store overrides on the defaults and
// validates every slot. A nil store yields the defaults.
func LoadPromptSet(store driven.PromptStore, engine *tplengine.Engine) (domain.PromptSet, error) {
	set := domain.DefaultPromptSet()
	if engine == nil {
		engine = tplengine.NewEngine()
	}

	if store != nil {
		for _, slot := range domain.AllPromptSlots() {
			tmpl, err := store.Load(string(slot))
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return domain.PromptSet{}, fmt.Errorf("load %s prompt: %w", slot, err)
			}
			if tmpl != set.Get(slot) {
				logger.Debug("Prompt override: %s", slot)
			}
			set = set.With(slot, tmpl)
		}
	}

	if err := engine.ValidateSet(set); err != nil {
		return domain.PromptSet{}, err
	}
	return set, nil
}

// PromptReceiver accepts a replacement prompt set.
type PromptReceiver interface {
	SetPrompts(p domain.PromptSet)
}

// ReloadPrompts rereads the store and hands the validated set to every
// receiver. When the new set fails to load the receivers keep their prompts.
func ReloadPrompts(store driven.PromptStore, engine *tplengine.Engine, receivers ...PromptReceiver) error {
	if store == nil {
		return nil
	}
	store.Reload()
	set, err := LoadPromptSet(store, engine)
	if err != nil {
		return err
	}
	for _, r := range receivers {
		r.SetPrompts(set)
	}
	logger.Info("Prompts reloaded")
	return nil
}

// promptRef holds a prompt set that may be replaced between calls.
type promptRef struct {
	mu  sync.RWMutex
	set domain.PromptSet
}

// SetPrompts replaces the prompt set used by later calls.
func (r *promptRef) SetPrompts(p domain.PromptSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set = p
}

func (r *promptRef) current() domain.PromptSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set
}

// runeEstimator approximates tokens as one per four characters.
type runeEstimator struct{}

func (runeEstimator) CountTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
