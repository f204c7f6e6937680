package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// DocumentRef is the read-only reference a passage holds to its owning document.
type DocumentRef struct {
	// Key is the stable deduplication key of the document.
	Key string

	// Name is the short citation key, e.g. "Doe2020".
	Name string

	// Citation is the human-readable citation string.
	Citation string
}

// PageRange is an inclusive page span. The zero value means unknown.
type PageRange struct {
	Start int
	End   int
}

// IsZero returns true if no page information is available.
func (r PageRange) IsZero() bool {
	return r.Start == 0 && r.End == 0
}

// List expands the range into individual page numbers.
func (r PageRange) List() []int {
	if r.IsZero() || r.End < r.Start {
		return []int{}
	}
	pages := make([]int, 0, r.End-r.Start+1)
	for p := r.Start; p <= r.End; p++ {
		pages = append(pages, p)
	}
	return pages
}

// String renders the range as "start-end".
func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Passage is an immutable unit of retrievable text.
type Passage struct {
	// Name is unique within the corpus, e.g. "Doe2020 pages 3-4".
	Name string

	// Text is the raw passage text.
	Text string

	// Doc references the owning document.
	Doc DocumentRef

	// Pages is the optional page range the passage spans.
	Pages PageRange

	// Embedding is the stored document-mode vector, if any.
	Embedding []float32
}

// ScoredPassage pairs a passage with its similarity to a query.
type ScoredPassage struct {
	Passage Passage
	Score   float64
}

var (
	pageRangePattern = regexp.MustCompile(`.*? pages (\d+)-(\d+)`)
	authorPattern    = regexp.MustCompile(`([A-Z][a-z]+)`)
	yearPattern      = regexp.MustCompile(`(\d{4})`)
)

// ParsePageRange extracts the "pages <start>-<end>" suffix of a passage name.
func ParsePageRange(name string) (PageRange, bool) {
	m := pageRangePattern.FindStringSubmatch(name)
	if m == nil {
		return PageRange{}, false
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return PageRange{}, false
	}
	end, err := strconv.Atoi(m[2])
	if err != nil {
		return PageRange{}, false
	}
	return PageRange{Start: start, End: end}, true
}

// DocNameFromCitation derives a citation key from the first capitalised
// word and the first four-digit year of a citation string.
func DocNameFromCitation(citation string) (string, error) {
	author := authorPattern.FindString(citation)
	if author == "" {
		return "", fmt.Errorf("%w: cannot derive document name from citation %q", ErrInvalidInput, citation)
	}
	return author + yearPattern.FindString(citation), nil
}

// PassageName composes the corpus-unique name of a passage.
func PassageName(docName string, pages PageRange) string {
	if pages.IsZero() {
		return docName
	}
	return docName + " pages " + pages.String()
}
