package citation

import (
	"bytes"
	"regexp"
	"sort"
	"strings"
)

var periodBeforeCite = regexp.MustCompile(`\.\s*?(<cite>.*?</cite>)`)

// Tag rewrites every citation group whose clauses all name a valid source
// into <cite> markup, then moves a sentence period that precedes a
// citation to directly after it. Tagging already tagged text is a no-op.
func Tag(text string, validNames []string) string {
	names := normaliseNames(validNames)
	if len(names) == 0 {
		return text
	}

	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); {
		if text[i] != '(' {
			out = append(out, text[i])
			i++
			continue
		}

		lx := newLexer(text, i+1, names)
		p := &parser{toks: lx.lexGroup()}
		clauses, ok := p.parseGroup()
		if !ok {
			out = append(out, '(')
			i++
			continue
		}

		// The citation attaches directly to the preceding word.
		out = bytes.TrimRight(out, " \t")

		var b strings.Builder
		b.WriteString("<cite>")
		for _, c := range clauses {
			c.render(&b)
		}
		b.WriteString("</cite>")
		out = append(out, b.String()...)
		i = lx.pos
	}

	return periodBeforeCite.ReplaceAllString(string(out), "$1.")
}

// normaliseNames drops blanks and duplicates and orders names longest
// first so the lexer prefers the most specific match.
func normaliseNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i]) > len(out[j])
	})
	return out
}
