package domain

// QueryResponse is the stable result shape exposed at the boundary.
type QueryResponse struct {
	Question   string      `json:"question"`
	Text       string      `json:"text"`
	References []Reference `json:"references"`
}

// Reference describes one cited source.
type Reference struct {
	// ID is the passage name.
	ID string `json:"id"`

	// Value is the document citation string.
	Value string `json:"value"`

	Pages  []int   `json:"pages"`
	Quotes []Point `json:"quotes"`
}

// NewQueryResponse builds the boundary record from a tagged answer.
// References follow bibliography order.
func NewQueryResponse(a Answer) QueryResponse {
	refs := make([]Reference, 0, a.Bibliography.Len())
	for _, c := range a.Bibliography.Entries() {
		quotes := c.Points
		if quotes == nil {
			quotes = []Point{}
		}
		refs = append(refs, Reference{
			ID:     c.Name(),
			Value:  c.Passage.Doc.Citation,
			Pages:  c.Passage.Pages.List(),
			Quotes: quotes,
		})
	}
	return QueryResponse{
		Question:   a.Question,
		Text:       a.TaggedText,
		References: refs,
	}
}
