// Package sqlite provides a SQLite-based implementation of the corpus store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single Store implements both
// driven.PassageStore (read access for retrieval) and driven.PassageWriter
// (document management and ingestion).
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Embeddings are stored as little-endian float32 blobs.
//
// # Data Location
//
// By default, the database is stored at ~/.didact/data/corpus.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
