// Package domain defines the core business entities for Kairoscope.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A unit of retrievable text plus metadata
//   - RetrievalQuery: A query with per-strategy result counts
//   - BuildReport: The outcome of an index build
//   - Deck, Card: Generated strategy decks
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
