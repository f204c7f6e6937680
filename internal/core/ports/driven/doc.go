// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - PassageStore: Read access to ingested passages and their embeddings
//   - EmbeddingService: Generates query embeddings
//   - LLMService: Summarises evidence and writes answers
//   - ConfigStore: Application configuration
//   - PromptStore: Prompt template overrides
//
// # Optional Interfaces
//
// These can be nil or absent, the application degrades gracefully:
//
//   - ModalEmbedder: Query/document embedding modes
//   - PassageWriter: Write access used by document management
//   - TokenCounter: Context token budgeting. A rune estimate is used otherwise.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
