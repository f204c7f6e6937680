// Package ratelimit wraps an LLM service with a client-side request rate limit.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// LLMService delays completions so that at most requestsPerSecond are
// started on average, with bursts of up to burst requests.
type LLMService struct {
	next    driven.LLMService
	limiter *rate.Limiter
}

// Wrap returns llm limited to requestsPerSecond. A non-positive rate
// returns llm unchanged. A non-positive burst is treated as 1.
func Wrap(llm driven.LLMService, requestsPerSecond float64, burst int) driven.LLMService {
	if llm == nil || requestsPerSecond <= 0 {
		return llm
	}
	if burst < 1 {
		burst = 1
	}
	return &LLMService{
		next:    llm,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Complete waits for a token, then delegates.
func (s *LLMService) Complete(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return driven.Completion{}, fmt.Errorf("rate limit: %w", err)
	}
	return s.next.Complete(ctx, req)
}

// ModelName returns the wrapped model name.
func (s *LLMService) ModelName() string {
	return s.next.ModelName()
}

// Ping is not rate limited.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped service.
func (s *LLMService) Close() error {
	return s.next.Close()
}
