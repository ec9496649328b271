// Package sqlite provides a SQLite-backed implementation of driven.GraphStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Embeddings are stored as little-endian float32 BLOBs and the vector index
// size is recorded in the store_meta table.
//
// # Similarity Search
//
// SQLite has no vector index, so NearestParagraphs is a brute-force cosine
// scan in Go. This is adequate for a single regulation corpus.
//
// # Data Location
//
// By default, the database is stored at ~/.lexgraph/data/graph.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
