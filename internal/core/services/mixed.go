package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

// MixedRetriever runs an ordered list of strategies and merges their
// results, dropping repeated content. Earlier strategies win ties.
type MixedRetriever struct {
	strategies []Strategy
	fallback   Strategy
	lastResort Strategy
	metrics    driven.Metrics
}

// NewMixedRetriever creates a mixed retriever. With no strategies it uses
// DefaultStrategies. A nil metrics discards measurements.
func NewMixedRetriever(metrics driven.Metrics, strategies ...Strategy) *MixedRetriever {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &MixedRetriever{
		strategies: strategies,
		fallback:   SimilarityStrategy{},
		lastResort: KeywordStrategy{},
		metrics:    metrics,
	}
}

// Strategies returns the strategies in priority order.
func (m *MixedRetriever) Strategies() []Strategy {
	return m.strategies
}

// Retrieve runs every strategy with its k from query. If any strategy
// fails, the result is plain similarity search with query.KSimilarity.
// If that fails too, documents matching the query words are returned, and
// the error only surfaces when no document matches.
func (m *MixedRetriever) Retrieve(ctx context.Context, idx SearchIndex, query domain.RetrievalQuery) ([]domain.Document, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	var merged []domain.Document
	for _, s := range m.strategies {
		k := query.K(s.Kind())
		if k <= 0 {
			continue
		}
		docs, err := m.run(ctx, s, idx, query, k)
		if err != nil {
			logger.Warn("%s retrieval failed, falling back to similarity only: %v", s.Kind(), err)
			m.metrics.RetrievalDegraded()
			return m.runFallback(ctx, idx, query)
		}
		merged = append(merged, docs...)
	}

	result := dedupByContent(merged)
	logger.Debug("mixed retrieval: %d candidates, %d unique", len(merged), len(result))
	return result, nil
}

func (m *MixedRetriever) runFallback(ctx context.Context, idx SearchIndex, query domain.RetrievalQuery) ([]domain.Document, error) {
	// With no similarity count, one document keeps the result non-empty.
	k := max(query.KSimilarity, 1)
	docs, err := m.run(ctx, m.fallback, idx, query, k)
	if err == nil {
		return dedupByContent(docs), nil
	}
	err = fmt.Errorf("similarity fallback: %w", err)
	logger.Warn("%v; trying keyword match", err)

	docs, kwErr := m.run(ctx, m.lastResort, idx, query, k)
	if kwErr != nil || len(docs) == 0 {
		return nil, err
	}
	return dedupByContent(docs), nil
}

func (m *MixedRetriever) run(ctx context.Context, s Strategy, idx SearchIndex, query domain.RetrievalQuery, k int) ([]domain.Document, error) {
	start := time.Now()
	docs, err := s.Retrieve(ctx, idx, query, k)
	if err != nil {
		return nil, err
	}
	m.metrics.RetrievalCompleted(s.Kind(), len(docs), time.Since(start))
	logger.Debug("%s retrieval: %d documents (k=%d)", s.Kind(), len(docs), k)
	return docs, nil
}

// dedupByContent keeps the first document for each distinct content.
func dedupByContent(docs []domain.Document) []domain.Document {
	seen := make(map[string]struct{}, len(docs))
	out := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.Content]; ok {
			continue
		}
		seen[d.Content] = struct{}{}
		out = append(out, d)
	}
	return out
}
