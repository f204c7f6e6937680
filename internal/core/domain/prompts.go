package domain

// PromptSlot names one template in a PromptSet.
type PromptSlot string

// Available prompt slots.
const (
	PromptSummary           PromptSlot = "summary"
	PromptSummaryJSON       PromptSlot = "summary_json"
	PromptSummaryJSONSystem PromptSlot = "summary_json_system"
	PromptQA                PromptSlot = "qa"
	PromptSystem            PromptSlot = "system"
	PromptPre               PromptSlot = "pre"
	PromptPost              PromptSlot = "post"
	PromptContextInner      PromptSlot = "context_inner"
	PromptContextOuter      PromptSlot = "context_outer"
)

// AllPromptSlots returns every slot in load order.
func AllPromptSlots() []PromptSlot {
	return []PromptSlot{
		PromptSummary,
		PromptSummaryJSON,
		PromptSummaryJSONSystem,
		PromptQA,
		PromptSystem,
		PromptPre,
		PromptPost,
		PromptContextInner,
		PromptContextOuter,
	}
}

// IsValid returns true if the slot is recognised.
func (s PromptSlot) IsValid() bool {
	for _, slot := range AllPromptSlots() {
		if slot == s {
			return true
		}
	}
	return false
}

// IsOptional returns true if an empty template disables the step.
func (s PromptSlot) IsOptional() bool {
	return s == PromptPre || s == PromptPost
}

// AllowedVariables returns the variables a template in this slot may reference.
// Open slots also accept arbitrary extra fields.
func (s PromptSlot) AllowedVariables() (vars []string, open bool) {
	switch s {
	case PromptSummary, PromptSummaryJSON, PromptSummaryJSONSystem:
		return []string{"question", "citation", "text", "summary_length"}, false
	case PromptQA:
		return []string{"context", "answer_length", "question", "example_citation", "example_citation_quote"}, false
	case PromptPre:
		return []string{"question"}, false
	case PromptPost:
		return []string{"question", "answer", "formatted_answer", "references", "context", "contexts", "bibliography"}, false
	case PromptContextInner:
		return []string{"name", "text", "quotes", "citation"}, true
	case PromptContextOuter:
		return []string{"context_str", "valid_keys"}, false
	default:
		return nil, false
	}
}

// PromptSet is the complete, named set of templates used by the pipeline.
// Templates use text/template syntax over a map of slot variables.
type PromptSet struct {
	Summary           string
	SummaryJSON       string
	SummaryJSONSystem string
	QA                string
	System            string
	Pre               string
	Post              string
	ContextInner      string
	ContextOuter      string

	// ExampleCitation is shown to the model and stripped if echoed back.
	ExampleCitation string

	// ExampleCitationQuote shows the quote-annotated citation form.
	ExampleCitationQuote string
}

// Get returns the template for a slot.
func (p PromptSet) Get(slot PromptSlot) string {
	switch slot {
	case PromptSummary:
		return p.Summary
	case PromptSummaryJSON:
		return p.SummaryJSON
	case PromptSummaryJSONSystem:
		return p.SummaryJSONSystem
	case PromptQA:
		return p.QA
	case PromptSystem:
		return p.System
	case PromptPre:
		return p.Pre
	case PromptPost:
		return p.Post
	case PromptContextInner:
		return p.ContextInner
	case PromptContextOuter:
		return p.ContextOuter
	default:
		return ""
	}
}

// With returns a copy of the set with one slot replaced.
func (p PromptSet) With(slot PromptSlot, tmpl string) PromptSet {
	switch slot {
	case PromptSummary:
		p.Summary = tmpl
	case PromptSummaryJSON:
		p.SummaryJSON = tmpl
	case PromptSummaryJSONSystem:
		p.SummaryJSONSystem = tmpl
	case PromptQA:
		p.QA = tmpl
	case PromptSystem:
		p.System = tmpl
	case PromptPre:
		p.Pre = tmpl
	case PromptPost:
		p.Post = tmpl
	case PromptContextInner:
		p.ContextInner = tmpl
	case PromptContextOuter:
		p.ContextOuter = tmpl
	}
	return p
}

// Default citation examples.
const (
	DefaultExampleCitation      = "(Example2012Example pages 3-4)"
	DefaultExampleCitationQuote = "(Example2012Example pages 3-4 quote1, quote2, Example2012Example pages 10-13 quote1)"
)

// DetailedCitationLine is the context_inner suffix removed when
// detailed citations are disabled.
const DetailedCitationLine = "\nFrom {{.citation}}"

// DefaultPromptSet returns the built-in templates.
func DefaultPromptSet() PromptSet {
	return PromptSet{
		Summary:              defaultSummaryPrompt,
		SummaryJSON:          defaultSummaryJSONPrompt,
		SummaryJSONSystem:    defaultSummaryJSONSystemPrompt,
		QA:                   defaultQAPrompt,
		System:               defaultSystemPrompt,
		ContextInner:         "{{.name}}: {{.text}}\n{{.quotes}}" + DetailedCitationLine,
		ContextOuter:         "{{if .context_str}}{{.context_str}}\n\nValid Keys: {{.valid_keys}}{{end}}",
		ExampleCitation:      DefaultExampleCitation,
		ExampleCitationQuote: DefaultExampleCitationQuote,
	}
}

const defaultSystemPrompt = "Answer in a direct and concise tone. " +
	"Your audience is an expert, so be highly specific. " +
	"If there are ambiguous terms or acronyms, first define them."

const defaultSummaryPrompt = "Summarize the excerpt below to help answer a question.\n\n" +
	"Excerpt from {{.citation}}\n\n----\n\n{{.text}}\n\n----\n\n" +
	"Question: {{.question}}\n\n" +
	"Do not directly answer the question, instead summarize to give evidence to help " +
	"answer the question. Stay detailed; report specific numbers, equations, or direct " +
	"quotes (marked with quotation marks). Reply \"Not applicable\" if the excerpt is " +
	"irrelevant. At the end of your response, provide an integer score from 1-10 on a " +
	"newline indicating relevance to question. Do not explain your score.\n\n" +
	"Relevant Information Summary ({{.summary_length}}):"

const defaultSummaryJSONPrompt = "Excerpt from {{.citation}}\n\n----\n\n{{.text}}\n\n----\n\n" +
	"Question: {{.question}}\n\n"

const defaultSummaryJSONSystemPrompt = `Provide a summary of the relevant information that could help answer the question based on the excerpt. Respond with the following JSON format:

{
  "summary": "...",
  "relevance_score": "...",
  "points": [
    {
        "quote": "...",
        "point": "..."
    }
  ]
}

where ` + "`summary`" + ` is relevant information from text - {{.summary_length}} words, ` +
	"`relevance_score`" + ` is the relevance of ` + "`summary`" + ` to answer question (out of 10), and ` +
	"`points`" + ` is an array of ` + "`point` and `quote`" + ` pairs that supports the summary where each ` +
	"`quote`" + ` is an exact match quote (max 50 words) from the text that best supports the respective ` +
	"`point`" + `. Make sure that the quote is an exact match without truncation or changes. Do not truncate the quote with any ellipsis.
`

const defaultQAPrompt = "Answer the question below with the context.\n\n" +
	"Context (with relevance scores):\n\n{{.context}}\n\n----\n\n" +
	"Question: {{.question}}\n\n" +
	"Write an answer based on the context. " +
	"If the context provides insufficient information reply " +
	"\"I cannot answer.\"" +
	"For each part of your answer, indicate which sources most support " +
	"it via citation keys at the end of sentences, " +
	"like {{.example_citation}}. Only cite from the context " +
	"below and only use the valid keys. " +
	"In the citation, reference a quote if relevant like {{.example_citation_quote}}. " +
	"Do not repeat any part of the quote in your answer. " +
	"A citation will be sufficient. " +
	"Write in a style accessible to the layperson but keep your " +
	"wording and content accurate without any misrepresentation. " +
	"The context comes from a variety of sources and is only a summary, " +
	"so there may inaccuracies or ambiguities. Do not add any extraneous information. " +
	"Split your answer into paragraphs with about 50 to 60 words per paragraph. " +
	"\n\n" +
	"Answer ({{.answer_length}}):"
