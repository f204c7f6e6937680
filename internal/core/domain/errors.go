package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRetrievalUnavailable indicates the passage pool could not be loaded
	// or the query could not be embedded.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrSummarizationFailed indicates a single evidence summarisation request
	// failed. The affected passage is omitted from the evidence set.
	ErrSummarizationFailed = errors.New("summarization failed")

	// ErrMalformedOutput indicates a structured model output could not be parsed.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrSynthesisFailed indicates the answer generation step failed.
	ErrSynthesisFailed = errors.New("answer synthesis failed")

	// ErrInvalidTemplate indicates a prompt template references variables
	// its slot does not provide, or does not parse.
	ErrInvalidTemplate = errors.New("invalid prompt template")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates a provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
