package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/didact-labs/didact/internal/adapters/driven/storage/memory"
	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// fakeLLM answers completions with a caller-supplied function and records
// every request.
type fakeLLM struct {
	respond func(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error)

	mu       sync.Mutex
	requests []driven.CompletionRequest

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeLLM(respond func(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error)) *fakeLLM {
	return &fakeLLM{respond: respond}
}

// replyLLM always returns text.
func replyLLM(text string) *fakeLLM {
	return newFakeLLM(func(context.Context, driven.CompletionRequest) (driven.Completion, error) {
		return driven.Completion{Text: text, PromptTokens: 10, CompletionTokens: 5}, nil
	})
}

func (l *fakeLLM) Complete(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	n := l.inFlight.Add(1)
	defer l.inFlight.Add(-1)
	for {
		peak := l.maxInFlight.Load()
		if n <= peak || l.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	l.mu.Lock()
	l.requests = append(l.requests, req)
	l.mu.Unlock()
	return l.respond(ctx, req)
}

func (l *fakeLLM) calls() []driven.CompletionRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]driven.CompletionRequest(nil), l.requests...)
}

func (l *fakeLLM) ModelName() string          { return "fake-model" }
func (l *fakeLLM) Ping(context.Context) error { return nil }
func (l *fakeLLM) Close() error               { return nil }

// fakeEmbedder maps query text to vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error

	mu    sync.Mutex
	modes []driven.EmbeddingMode
	mode  driven.EmbeddingMode
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.mu.Lock()
	e.modes = append(e.modes, e.mode)
	e.mu.Unlock()

	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int            { return 2 }
func (e *fakeEmbedder) ModelName() string          { return "fake-embed" }
func (e *fakeEmbedder) Ping(context.Context) error { return nil }
func (e *fakeEmbedder) Close() error               { return nil }

// modalEmbedder adds query/document modes to fakeEmbedder.
type modalEmbedder struct {
	*fakeEmbedder
}

func (e modalEmbedder) SetMode(mode driven.EmbeddingMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

func (e modalEmbedder) Mode() driven.EmbeddingMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// countingStore counts how many times the pool is loaded.
type countingStore struct {
	*memory.PassageStore
	counts atomic.Int32
	err    error
}

func (s *countingStore) CountPassages(ctx context.Context) (int, error) {
	s.counts.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return s.PassageStore.CountPassages(ctx)
}

// fakeSearcher returns fixed candidates and records the requested sizes.
type fakeSearcher struct {
	results []domain.ScoredPassage
	err     error

	k, fetchK int
	lambda    float64
}

func (s *fakeSearcher) Search(_ context.Context, _ string, k int) ([]domain.ScoredPassage, error) {
	s.k = k
	if k < len(s.results) {
		return s.results[:k], s.err
	}
	return s.results, s.err
}

func (s *fakeSearcher) SearchMMR(_ context.Context, _ string, k, fetchK int, lambda float64) ([]domain.ScoredPassage, error) {
	s.k, s.fetchK, s.lambda = k, fetchK, lambda
	if k < len(s.results) {
		return s.results[:k], s.err
	}
	return s.results, s.err
}

// fakeDeletedStore reports soft-deleted keys for exclusion tests.
type fakeDeletedStore struct {
	driven.PassageStore
	keys []string
	err  error
}

func (s fakeDeletedStore) DeletedDocumentKeys(context.Context) ([]string, error) {
	return s.keys, s.err
}

var errBoom = errors.New("boom")

func testDoc(name string) domain.DocumentRef {
	return domain.DocumentRef{
		Key:      strings.ToLower(name),
		Name:     name,
		Citation: name + ", Journal of Tests.",
	}
}

func testPassage(doc string, start, end int, text string) domain.Passage {
	pages := domain.PageRange{Start: start, End: end}
	return domain.Passage{
		Name:  domain.PassageName(doc, pages),
		Text:  text,
		Doc:   testDoc(doc),
		Pages: pages,
	}
}

func scored(passages ...domain.Passage) []domain.ScoredPassage {
	out := make([]domain.ScoredPassage, 0, len(passages))
	for i, p := range passages {
		out = append(out, domain.ScoredPassage{Passage: p, Score: 1 - float64(i)*0.1})
	}
	return out
}

func testContext(p domain.Passage, summary string, score float64, points ...domain.Point) domain.Context {
	return domain.Context{Passage: p, Summary: summary, Score: score, Points: points}
}
