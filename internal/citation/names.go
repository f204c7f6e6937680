package citation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/didact-labs/didact/internal/core/domain"
)

// NameInText reports whether name occurs in text as a whole token: not
// preceded or followed by a letter, digit or underscore. "Name2019"
// therefore does not match inside "Name2019a".
func NameInText(name, text string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for offset := 0; offset <= len(text)-len(name); {
		idx := strings.Index(text[offset:], name)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(name)
		if boundaryBefore(text, start, name) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func boundaryBefore(text string, start int, name string) bool {
	first, _ := utf8.DecodeRuneInString(name)
	if !isWordRune(first) || start == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:start])
	return !isWordRune(prev)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(next)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// PrefixCollisions returns pairs of valid names where the first is a
// strict prefix of the second. Such names rely on whole-token matching
// to avoid false citations.
func PrefixCollisions(names []string) [][2]string {
	var out [][2]string
	for _, a := range names {
		for _, b := range names {
			if a != b && a != "" && strings.HasPrefix(b, a) {
				out = append(out, [2]string{a, b})
			}
		}
	}
	return out
}

// DocNames returns the distinct document names of the given contexts in
// order of first appearance.
func DocNames(contexts []domain.Context) []string {
	seen := make(map[string]struct{}, len(contexts))
	var out []string
	for _, c := range contexts {
		n := c.Passage.Doc.Name
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
