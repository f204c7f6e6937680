package domain

import "github.com/google/uuid"

// CannotAnswerText is the fixed response used when the context is insufficient.
const CannotAnswerText = "I cannot answer this question due to insufficient information."

// Answer is the per-query record threaded through the pipeline.
// Each stage takes an Answer and returns the updated record; an Answer
// is owned by a single query and never shared.
type Answer struct {
	ID       uuid.UUID
	Question string

	// Contexts is every piece of evidence gathered for the question.
	Contexts []Context

	// FilteredContexts is the ranked subset used for synthesis.
	FilteredContexts []Context

	// Context is the assembled context block sent to the model.
	Context string

	// Text is the raw generated answer.
	Text string

	// FormattedAnswer is the question, answer and reference list.
	FormattedAnswer string

	// TaggedText is Text with citations rewritten to <cite> markup.
	TaggedText string

	// References is the rendered numbered reference list.
	References string

	// Bibliography maps cited source names to their contexts in citation order.
	Bibliography Bibliography

	Usage Usage
}

// NewAnswer creates an empty answer for a question.
func NewAnswer(question string) Answer {
	return Answer{
		ID:       uuid.New(),
		Question: question,
	}
}

// ContextNames returns the passage names of all gathered contexts.
func (a Answer) ContextNames() []string {
	names := make([]string, 0, len(a.Contexts))
	for _, c := range a.Contexts {
		names = append(names, c.Name())
	}
	return names
}

// Bibliography is an insertion-ordered map of source name to context.
type Bibliography struct {
	names   []string
	entries map[string]Context
}

// Add records a context under its name. Returns false if already present.
func (b *Bibliography) Add(c Context) bool {
	if b.entries == nil {
		b.entries = make(map[string]Context)
	}
	if _, ok := b.entries[c.Name()]; ok {
		return false
	}
	b.names = append(b.names, c.Name())
	b.entries[c.Name()] = c
	return true
}

// Get returns the context cited under name.
func (b Bibliography) Get(name string) (Context, bool) {
	c, ok := b.entries[name]
	return c, ok
}

// Names returns cited names in insertion order.
func (b Bibliography) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Entries returns cited contexts in insertion order.
func (b Bibliography) Entries() []Context {
	out := make([]Context, 0, len(b.names))
	for _, n := range b.names {
		out = append(out, b.entries[n])
	}
	return out
}

// Len returns the number of cited sources.
func (b Bibliography) Len() int {
	return len(b.names)
}
