package domain

import "strings"

// DefaultPassThroughScore is assigned to contexts built without summarisation.
const DefaultPassThroughScore = 5.0

// Point is a claim supported by a verbatim quote from the passage.
type Point struct {
	Quote string `json:"quote"`
	Point string `json:"point"`
}

// Context is the scored evidence derived from one passage for one question.
type Context struct {
	// Passage is the source passage.
	Passage Passage

	// Summary is the generated summary text.
	Summary string

	// Score is the relevance of the summary to the question, 0 to 10.
	Score float64

	// Points are (quote, point) pairs; each quote is an exact substring
	// of the passage text.
	Points []Point

	// Extra holds additional structured fields usable in prompt templates.
	Extra map[string]any
}

// Name returns the name of the source passage.
func (c Context) Name() string {
	return c.Passage.Name
}

// UngroundedQuotes returns quotes that do not occur verbatim in the passage.
func (c Context) UngroundedQuotes() []string {
	var out []string
	for _, p := range c.Points {
		if p.Quote == "" || !strings.Contains(c.Passage.Text, p.Quote) {
			out = append(out, p.Quote)
		}
	}
	return out
}
