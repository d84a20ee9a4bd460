package driven

import (
	"context"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// DocumentFilter restricts search candidates. A nil filter accepts everything.
type DocumentFilter func(doc domain.Document) bool

// VectorIndex stores one vector per document and answers exact
// nearest-neighbour queries by squared Euclidean distance.
//
// Add is only called while an index is being built. Once an index is
// published to readers it is never mutated, so Search, Entries and Len
// are safe for unlimited concurrent callers.
type VectorIndex interface {
	// Add appends a document with its vector.
	// Returns domain.ErrIndexCorrupt if the vector length differs from Dimensions.
	Add(doc domain.Document, vector []float32) error

	// Search returns the k nearest documents to the query vector, nearest first.
	// Equal distances keep insertion order.
	Search(ctx context.Context, query []float32, k int, filter DocumentFilter) ([]domain.ScoredDocument, error)

	// Entries returns every document and vector in insertion order.
	Entries() []IndexEntry

	// Len returns the number of indexed documents.
	Len() int

	// Dimensions returns the vector size.
	Dimensions() int
}

// IndexEntry is one persisted (document, vector) pair.
type IndexEntry struct {
	Document domain.Document
	Vector   []float32
}

// VectorIndexFactory creates an empty vector index for vectors of the given size.
type VectorIndexFactory func(dimensions int) (VectorIndex, error)
