package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// SearchIndex is the read side of an embedding index that retrieval
// strategies run against.
type SearchIndex interface {
	// SimilaritySearch returns the k nearest documents to the query text.
	SimilaritySearch(ctx context.Context, query string, k int, filter driven.DocumentFilter) ([]domain.Document, error)

	// SimilaritySearchWithScore is SimilaritySearch with distances.
	SimilaritySearchWithScore(ctx context.Context, query string, k int, filter driven.DocumentFilter) ([]domain.ScoredDocument, error)

	// All returns every document in insertion order.
	All() []domain.Document

	// Len returns the number of documents.
	Len() int
}

// EmbeddingIndex pairs a built vector index with the embedding service
// that produced it. It is never mutated once constructed.
type EmbeddingIndex struct {
	vectors  driven.VectorIndex
	embedder driven.EmbeddingService
	manifest driven.IndexManifest
	docs     []domain.Document
}

// NewEmbeddingIndex wraps a fully built vector index.
func NewEmbeddingIndex(vectors driven.VectorIndex, embedder driven.EmbeddingService, manifest driven.IndexManifest) *EmbeddingIndex {
	entries := vectors.Entries()
	docs := make([]domain.Document, len(entries))
	for i, e := range entries {
		docs[i] = e.Document
	}
	manifest.Documents = len(docs)
	manifest.Dimensions = vectors.Dimensions()
	return &EmbeddingIndex{
		vectors:  vectors,
		embedder: embedder,
		manifest: manifest,
		docs:     docs,
	}
}

// SimilaritySearch returns the k nearest documents, nearest first.
func (i *EmbeddingIndex) SimilaritySearch(ctx context.Context, query string, k int, filter driven.DocumentFilter) ([]domain.Document, error) {
	scored, err := i.SimilaritySearchWithScore(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}
	return documentsOf(scored), nil
}

// SimilaritySearchWithScore returns the k nearest documents with their
// squared L2 distance, nearest first.
func (i *EmbeddingIndex) SimilaritySearchWithScore(ctx context.Context, query string, k int, filter driven.DocumentFilter) ([]domain.ScoredDocument, error) {
	vector, err := i.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return i.vectors.Search(ctx, vector, k, filter)
}

func (i *EmbeddingIndex) embed(ctx context.Context, query string) ([]float32, error) {
	if i.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service for queries", domain.ErrEmbeddingUnavailable)
	}
	vector, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vector, nil
}

// All returns every document in insertion order. The slice is shared
// and must not be modified.
func (i *EmbeddingIndex) All() []domain.Document {
	return i.docs
}

// Len returns the number of documents.
func (i *EmbeddingIndex) Len() int {
	return len(i.docs)
}

// Manifest describes the index.
func (i *EmbeddingIndex) Manifest() driven.IndexManifest {
	return i.manifest
}

// Entries returns every (document, vector) pair for persistence.
func (i *EmbeddingIndex) Entries() []driven.IndexEntry {
	return i.vectors.Entries()
}

// withSharedQuery returns a view of the index that embeds each distinct
// query text once, for the strategies of a single mixed retrieval.
func (i *EmbeddingIndex) withSharedQuery() *sharedQueryIndex {
	return &sharedQueryIndex{EmbeddingIndex: i, queries: make(map[string][]float32)}
}

type sharedQueryIndex struct {
	*EmbeddingIndex

	mu      sync.Mutex
	queries map[string][]float32
}

func (s *sharedQueryIndex) SimilaritySearch(ctx context.Context, query string, k int, filter driven.DocumentFilter) ([]domain.Document, error) {
	scored, err := s.SimilaritySearchWithScore(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}
	return documentsOf(scored), nil
}

func (s *sharedQueryIndex) SimilaritySearchWithScore(ctx context.Context, query string, k int, filter driven.DocumentFilter) ([]domain.ScoredDocument, error) {
	s.mu.Lock()
	vector, ok := s.queries[query]
	s.mu.Unlock()

	if !ok {
		var err error
		vector, err = s.embed(ctx, query)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.queries[query] = vector
		s.mu.Unlock()
	}
	return s.vectors.Search(ctx, vector, k, filter)
}

func documentsOf(scored []domain.ScoredDocument) []domain.Document {
	docs := make([]domain.Document, len(scored))
	for i, s := range scored {
		docs[i] = s.Document
	}
	return docs
}
