package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/didact-labs/didact/internal/core/domain"
)

// structuredSummary is a parsed JSON evidence summary.
type structuredSummary struct {
	Summary string
	Score   float64
	Points  []domain.Point
	Extra   map[string]any
}

var reservedSummaryKeys = map[string]struct{}{
	"summary":         {},
	"relevance_score": {},
	"points":          {},
	"quote":           {},
}

// parseSummaryJSON extracts the outermost JSON object from model output and
// reads the summary, score and quote/point pairs from it. A single "quote"
// key is accepted as one point. Unknown keys are returned as extras.
func parseSummaryJSON(text string) (structuredSummary, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return structuredSummary{}, fmt.Errorf("%w: no JSON object in output", domain.ErrMalformedOutput)
	}
	raw := text[start : end+1]
	if !gjson.Valid(raw) {
		return structuredSummary{}, fmt.Errorf("%w: invalid JSON", domain.ErrMalformedOutput)
	}
	doc := gjson.Parse(raw)

	summary := doc.Get("summary")
	if !summary.Exists() {
		return structuredSummary{}, fmt.Errorf("%w: missing summary", domain.ErrMalformedOutput)
	}
	score, err := parseScore(doc.Get("relevance_score"))
	if err != nil {
		return structuredSummary{}, err
	}

	out := structuredSummary{
		Summary: summary.String(),
		Score:   score,
	}

	doc.Get("points").ForEach(func(_, p gjson.Result) bool {
		quote := p.Get("quote").String()
		point := p.Get("point").String()
		if quote != "" || point != "" {
			out.Points = append(out.Points, domain.Point{Quote: quote, Point: point})
		}
		return true
	})
	if q := doc.Get("quote"); q.Exists() && q.String() != "" {
		out.Points = append(out.Points, domain.Point{Quote: q.String()})
	}

	doc.ForEach(func(key, value gjson.Result) bool {
		if _, reserved := reservedSummaryKeys[key.String()]; reserved {
			return true
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[key.String()] = value.Value()
		return true
	})

	return out, nil
}

var leadingNumber = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)`)

// parseScore accepts a JSON number or a string such as "8", "8.5" or "8/10".
func parseScore(v gjson.Result) (float64, error) {
	if !v.Exists() {
		return 0, fmt.Errorf("%w: missing relevance_score", domain.ErrMalformedOutput)
	}
	var score float64
	switch v.Type {
	case gjson.Number:
		score = v.Float()
	case gjson.String:
		m := leadingNumber.FindStringSubmatch(v.String())
		if m == nil {
			return 0, fmt.Errorf("%w: relevance_score %q is not a number", domain.ErrMalformedOutput, v.String())
		}
		parsed, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: relevance_score: %v", domain.ErrMalformedOutput, err)
		}
		score = parsed
	default:
		return 0, fmt.Errorf("%w: relevance_score has type %s", domain.ErrMalformedOutput, v.Type)
	}
	return normaliseScore(score), nil
}

// normaliseScore maps scores given out of 100 back onto 0-10.
func normaliseScore(s float64) float64 {
	if s > 10 {
		s /= 10
	}
	if s < 0 {
		s = 0
	}
	if s > 10 {
		s = 10
	}
	return s
}

var (
	slashScoreLine = regexp.MustCompile(`^\s*(\d+)`)
	labelledScore  = regexp.MustCompile(`[sS]core[:is\s]+([0-9]+)`)
	parenScore     = regexp.MustCompile(`\(([0-9])\w*/`)
	fractionScore  = regexp.MustCompile(`([0-9]+)\w*/`)
	anyInteger     = regexp.MustCompile(`([0-9]+)`)
)

// extractScore reads a relevance score from free-text summary output.
// It tries, in order: "N/10" on the last line, "Score: N", "(N/", "N/",
// and the last integer in the final characters. Output with no score
// defaults to 1 when short and 5 otherwise.
func extractScore(text string) float64 {
	lines := strings.Split(text, "\n")
	last := lines[len(lines)-1]
	if strings.Contains(last, "/") {
		if m := slashScoreLine.FindStringSubmatch(strings.SplitN(last, "/", 2)[0]); m != nil {
			if s, err := strconv.Atoi(m[1]); err == nil {
				return normaliseScore(float64(s))
			}
		}
	}

	for _, re := range []*regexp.Regexp{labelledScore, parenScore, fractionScore} {
		if m := re.FindStringSubmatch(text); m != nil {
			if s, err := strconv.Atoi(m[1]); err == nil {
				return normaliseScore(float64(s))
			}
		}
	}

	tail := text
	if len(tail) > 15 {
		tail = tail[len(tail)-15:]
	}
	if all := anyInteger.FindAllString(tail, -1); len(all) > 0 {
		if s, err := strconv.Atoi(all[len(all)-1]); err == nil {
			return normaliseScore(float64(s))
		}
	}

	if len(text) < 100 {
		return 1
	}
	return 5
}

var authorYearCitation = regexp.MustCompile(`\b[\w\-]+\set\sal\.\s\([0-9]{4}\)|\((?:[^\)]*?[a-zA-Z][^\)]*?[0-9]{4}[^\)]*?)\)`)

// stripCitations removes author-year citations a summariser may add, such
// as "Smith et al. (2020)" or "(Doe, 2019)".
func stripCitations(text string) string {
	return authorYearCitation.ReplaceAllString(text, "")
}
