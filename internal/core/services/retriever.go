package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
	"github.com/didact-labs/didact/internal/logger"
)

// DefaultPageSize is the batch size used when loading the passage pool.
const DefaultPageSize = 500

// PassageSearcher ranks passages against a query.
type PassageSearcher interface {
	// Search returns the top k passages by cosine similarity.
	Search(ctx context.Context, query string, k int) ([]domain.ScoredPassage, error)

	// SearchMMR over-fetches fetchK passages by similarity and selects k of
	// them by maximal marginal relevance.
	SearchMMR(ctx context.Context, query string, k, fetchK int, lambda float64) ([]domain.ScoredPassage, error)
}

var _ PassageSearcher = (*Retriever)(nil)

// Retriever performs exact vector search over the passage pool.
// The pool is loaded from the store on first use and cached until Refresh.
type Retriever struct {
	store    driven.PassageStore
	embedder driven.EmbeddingService
	pageSize int

	// mu guards the pool; holding it across the load serialises first use.
	mu     sync.Mutex
	pool   []domain.Passage
	loaded bool

	// embedMu serialises embedding mode switches.
	embedMu sync.Mutex
}

// NewRetriever creates a retriever. A non-positive pageSize uses DefaultPageSize.
func NewRetriever(store driven.PassageStore, embedder driven.EmbeddingService, pageSize int) *Retriever {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		pageSize: pageSize,
	}
}

// Refresh drops the cached pool. The next search reloads it.
func (r *Retriever) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pool = nil
	r.loaded = false
}

// Search returns the top k passages by descending cosine similarity.
// Ties keep pool order. Fewer than k passages returns all of them.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredPassage, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: k must not be negative", domain.ErrInvalidInput)
	}
	if k == 0 {
		return []domain.ScoredPassage{}, nil
	}

	pool, err := r.passages(ctx)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return []domain.ScoredPassage{}, nil
	}

	qvec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(pool))
	for i, p := range pool {
		scores[i] = CosineSimilarity(qvec, p.Embedding)
	}
	order := rankDescending(scores)
	if k < len(order) {
		order = order[:k]
	}

	results := make([]domain.ScoredPassage, 0, len(order))
	for _, idx := range order {
		results = append(results, domain.ScoredPassage{Passage: pool[idx], Score: scores[idx]})
	}
	logger.Debug("Vector search: %d candidates, returned %d", len(pool), len(results))
	return results, nil
}

// SearchMMR selects k of the fetchK most similar passages, trading
// relevance against redundancy. lambda 1 is pure relevance, 0 pure diversity.
func (r *Retriever) SearchMMR(
	ctx context.Context, query string, k, fetchK int, lambda float64,
) ([]domain.ScoredPassage, error) {
	if lambda < 0 || lambda > 1 {
		return nil, fmt.Errorf("%w: mmr lambda must be within [0,1]", domain.ErrInvalidInput)
	}
	if k < 0 {
		return nil, fmt.Errorf("%w: k must not be negative", domain.ErrInvalidInput)
	}
	if k == 0 {
		return []domain.ScoredPassage{}, nil
	}
	if fetchK < k {
		fetchK = k
	}

	candidates, err := r.Search(ctx, query, fetchK)
	if err != nil {
		return nil, err
	}
	if len(candidates) <= k || lambda == 1 {
		if k < len(candidates) {
			candidates = candidates[:k]
		}
		return candidates, nil
	}

	selected := maximalMarginalRelevance(candidates, k, lambda)
	logger.Debug("MMR: selected %d of %d candidates (lambda=%.2f)", len(selected), len(candidates), lambda)
	return selected, nil
}

func (r *Retriever) passages(ctx context.Context) ([]domain.Passage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return r.pool, nil
	}
	if r.store == nil {
		return nil, fmt.Errorf("%w: no passage store configured", domain.ErrRetrievalUnavailable)
	}

	pool, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load passages: %w", domain.ErrRetrievalUnavailable, err)
	}
	r.pool = pool
	r.loaded = true
	logger.Info("Loaded passage pool: %d passages", len(pool))
	return r.pool, nil
}

func (r *Retriever) load(ctx context.Context) ([]domain.Passage, error) {
	total, err := r.store.CountPassages(ctx)
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	pool := make([]domain.Passage, 0, total)
	for offset := 0; offset < total; {
		batch, err := r.store.ListPassages(ctx, offset, r.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}
		pool = append(pool, batch...)
		offset += len(batch)
	}
	return pool, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.embedder == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalUnavailable, domain.ErrEmbeddingUnavailable)
	}

	r.embedMu.Lock()
	defer r.embedMu.Unlock()

	if modal, ok := r.embedder.(driven.ModalEmbedder); ok {
		modal.SetMode(driven.EmbeddingModeQuery)
		defer modal.SetMode(driven.EmbeddingModeDocument)
	}

	vecs, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrRetrievalUnavailable, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: embed query: expected 1 vector, got %d", domain.ErrRetrievalUnavailable, len(vecs))
	}
	return vecs[0], nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Undefined similarity (empty or zero vectors, mismatched dimensions,
// non-finite values) is negative infinity.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return math.Inf(-1)
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return math.Inf(-1)
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return math.Inf(-1)
	}
	return sim
}

// rankDescending returns indices ordered by descending score, stable on ties.
func rankDescending(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	return order
}

// maximalMarginalRelevance greedily picks k candidates. Candidates must be
// sorted by relevance; the most relevant is always picked first.
func maximalMarginalRelevance(candidates []domain.ScoredPassage, k int, lambda float64) []domain.ScoredPassage {
	n := len(candidates)
	pairwise := func(i, j int) float64 {
		sim := CosineSimilarity(candidates[i].Passage.Embedding, candidates[j].Passage.Embedding)
		if math.IsInf(sim, -1) {
			return -1
		}
		return sim
	}

	chosen := []int{0}
	used := make([]bool, n)
	used[0] = true

	for len(chosen) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			maxSim := math.Inf(-1)
			for _, j := range chosen {
				if s := pairwise(i, j); s > maxSim {
					maxSim = s
				}
			}
			score := 0.0
			if lambda > 0 {
				score += lambda * candidates[i].Score
			}
			if lambda < 1 {
				score -= (1 - lambda) * maxSim
			}
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}
		if best == -1 {
			break
		}
		used[best] = true
		chosen = append(chosen, best)
	}

	out := make([]domain.ScoredPassage, 0, len(chosen))
	for _, idx := range chosen {
		out = append(out, candidates[idx])
	}
	return out
}
