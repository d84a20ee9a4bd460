package domain

import "fmt"

// StrategyKind tags a retrieval strategy variant.
type StrategyKind string

// Available strategy kinds, in mixed-retrieval priority order.
const (
	// StrategySimilarity returns the nearest documents to the query.
	StrategySimilarity StrategyKind = "similarity"

	// StrategyDivergence returns the worst matches from an enlarged
	// nearest-neighbour pool, for contrast.
	StrategyDivergence StrategyKind = "divergence"

	// StrategyRandom returns a uniform sample of the corpus.
	StrategyRandom StrategyKind = "random"

	// StrategyKeyword ranks documents by query word hits. It needs no
	// embeddings and only runs as the last-resort fallback.
	StrategyKeyword StrategyKind = "keyword"
)

// MaxK bounds each per-strategy count in a RetrievalQuery.
const MaxK = 10000

// String returns the string representation.
func (k StrategyKind) String() string {
	return string(k)
}

// IsValid returns true if the strategy kind is recognised.
func (k StrategyKind) IsValid() bool {
	switch k {
	case StrategySimilarity, StrategyDivergence, StrategyRandom, StrategyKeyword:
		return true
	default:
		return false
	}
}

// RetrievalQuery is a transient query with per-strategy counts.
type RetrievalQuery struct {
	// Text is the query string embedded for similarity and divergence.
	Text string

	// KSimilarity is the number of nearest documents requested.
	KSimilarity int

	// KDivergence is the number of contrasting documents requested.
	KDivergence int

	// KRandom is the number of randomly sampled documents requested.
	KRandom int

	// Tags optionally restricts similarity candidates to documents
	// carrying at least one of these labels.
	Tags []string
}

// Total returns the upper bound on a mixed retrieval result length.
func (q RetrievalQuery) Total() int {
	return q.KSimilarity + q.KDivergence + q.KRandom
}

// K returns the count requested for a strategy kind.
func (q RetrievalQuery) K(kind StrategyKind) int {
	switch kind {
	case StrategySimilarity:
		return q.KSimilarity
	case StrategyDivergence:
		return q.KDivergence
	case StrategyRandom:
		return q.KRandom
	default:
		return 0
	}
}

// Validate checks the counts are usable.
func (q RetrievalQuery) Validate() error {
	if q.KSimilarity < 0 || q.KDivergence < 0 || q.KRandom < 0 {
		return fmt.Errorf("%w: k values must be non-negative", ErrInvalidRequest)
	}
	if q.KSimilarity > MaxK || q.KDivergence > MaxK || q.KRandom > MaxK {
		return fmt.Errorf("%w: k values must be at most %d", ErrInvalidRequest, MaxK)
	}
	if q.Total() == 0 {
		return fmt.Errorf("%w: at least one k value must be positive", ErrInvalidRequest)
	}
	return nil
}
