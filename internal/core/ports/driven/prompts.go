package driven

// PromptStore provides access to prompt template overrides.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given slot name.
	// Returns domain.ErrNotFound when the slot has neither an override nor a default.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}
