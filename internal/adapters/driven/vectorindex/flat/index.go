package flat

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index holds documents and vectors in insertion order.
// Add must not be called once the index is shared with readers.
type Index struct {
	dimension int
	docs      []domain.Document
	vectors   [][]float32
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, errors.New("flat: dimension must be positive")
	}
	return &Index{dimension: dimension}, nil
}

// NewVectorIndex is a driven.VectorIndexFactory producing flat indexes.
func NewVectorIndex(dimension int) (driven.VectorIndex, error) {
	idx, err := New(dimension)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// FromEntries creates an index holding the given entries.
// Returns domain.ErrIndexCorrupt if any vector has the wrong dimension.
func FromEntries(dimension int, entries []driven.IndexEntry) (*Index, error) {
	idx, err := New(dimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	idx.docs = make([]domain.Document, 0, len(entries))
	idx.vectors = make([][]float32, 0, len(entries))
	for _, e := range entries {
		if err := idx.Add(e.Document, e.Vector); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Add appends a document with its vector. The vector is copied.
func (i *Index) Add(doc domain.Document, vector []float32) error {
	if len(vector) != i.dimension {
		return fmt.Errorf("%w: vector has %d dimensions, index has %d",
			domain.ErrIndexCorrupt, len(vector), i.dimension)
	}
	v := make([]float32, len(vector))
	copy(v, vector)
	i.docs = append(i.docs, doc)
	i.vectors = append(i.vectors, v)
	return nil
}

// Search returns the k nearest documents by squared Euclidean distance,
// nearest first. Equal distances keep insertion order.
func (i *Index) Search(ctx context.Context, query []float32, k int, filter driven.DocumentFilter) ([]domain.ScoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != i.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrIndexCorrupt, len(query), i.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	scored := make([]domain.ScoredDocument, 0, len(i.docs))
	for n, doc := range i.docs {
		if filter != nil && !filter(doc) {
			continue
		}
		scored = append(scored, domain.ScoredDocument{
			Document: doc,
			Distance: squaredL2(query, i.vectors[n]),
		})
	}

	slices.SortStableFunc(scored, func(a, b domain.ScoredDocument) int {
		return cmp.Compare(a.Distance, b.Distance)
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Entries returns every document and vector in insertion order.
// The returned vectors must not be modified.
func (i *Index) Entries() []driven.IndexEntry {
	entries := make([]driven.IndexEntry, len(i.docs))
	for n := range i.docs {
		entries[n] = driven.IndexEntry{Document: i.docs[n], Vector: i.vectors[n]}
	}
	return entries
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	return len(i.docs)
}

// Dimensions returns the vector size.
func (i *Index) Dimensions() int {
	return i.dimension
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for n := range a {
		d := a[n] - b[n]
		sum += d * d
	}
	return sum
}
