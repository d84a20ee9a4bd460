// Package sqlite provides SQLite-based implementations of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It provides:
//
//   - DeckStore: Deck and card persistence in a long-lived database
//   - IndexStore: The persisted embedding index, one database file per index directory
//
// # Schema
//
// Both schemas are managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the deck database is stored at ~/.kairoscope/data/kairoscope.db
// and the index at ~/.kairoscope/index/index.db.
//
// # Thread Safety
//
// All operations are thread-safe. The deck store uses database-level locking
// provided by SQLite in WAL mode. The index store never shares a connection:
// each Save and Load opens and closes its own.
package sqlite
