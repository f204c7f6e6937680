// Package domain defines the core business entities for didact.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies beyond the standard library and
// google/uuid, and defines the fundamental types:
//
//   - Passage: A retrievable text unit of an ingested document
//   - Context: A scored evidence fragment summarising one passage
//   - Answer: The per-query record threaded through the pipeline
//   - QueryResponse: The structured result returned at the boundary
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. All other packages depend on
// domain, never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library, github.com/google/uuid
//   - Cannot Import: Any internal/ package
package domain
