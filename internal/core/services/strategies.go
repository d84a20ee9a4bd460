package services

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// divergencePoolFactor sizes the candidate pool the divergence strategy
// re-sorts, as a multiple of k.
const divergencePoolFactor = 10

// Strategy selects up to k documents from an index for a query.
// Implementations must be safe for concurrent use.
type Strategy interface {
	// Kind identifies the strategy.
	Kind() domain.StrategyKind

	// Retrieve returns at most k documents.
	Retrieve(ctx context.Context, idx SearchIndex, query domain.RetrievalQuery, k int) ([]domain.Document, error)
}

// DefaultStrategies returns similarity, divergence and random, in
// mixed-retrieval priority order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		SimilarityStrategy{},
		DivergenceStrategy{},
		NewRandomStrategy(nil),
	}
}

// SimilarityStrategy returns the k nearest documents. When the query has
// tags, only documents carrying one of them are candidates.
type SimilarityStrategy struct{}

// Kind implements Strategy.
func (SimilarityStrategy) Kind() domain.StrategyKind { return domain.StrategySimilarity }

// Retrieve implements Strategy.
func (SimilarityStrategy) Retrieve(ctx context.Context, idx SearchIndex, query domain.RetrievalQuery, k int) ([]domain.Document, error) {
	if k <= 0 {
		return nil, nil
	}
	var filter driven.DocumentFilter
	if len(query.Tags) > 0 {
		filter = func(doc domain.Document) bool { return doc.HasAnyTag(query.Tags) }
	}
	return idx.SimilaritySearch(ctx, query.Text, k, filter)
}

// DivergenceStrategy returns the k worst matches among the k*10 nearest
// documents, farthest first. It approximates farthest-neighbour search
// without scanning the whole corpus.
type DivergenceStrategy struct{}

// Kind implements Strategy.
func (DivergenceStrategy) Kind() domain.StrategyKind { return domain.StrategyDivergence }

// Retrieve implements Strategy.
func (DivergenceStrategy) Retrieve(ctx context.Context, idx SearchIndex, query domain.RetrievalQuery, k int) ([]domain.Document, error) {
	if k <= 0 {
		return nil, nil
	}
	// Cap at the corpus size so the pool size cannot overflow.
	k = min(k, idx.Len())
	pool, err := idx.SimilaritySearchWithScore(ctx, query.Text, k*divergencePoolFactor, nil)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(pool, func(a, b domain.ScoredDocument) int {
		return cmp.Compare(b.Distance, a.Distance)
	})
	if k < len(pool) {
		pool = pool[:k]
	}
	return documentsOf(pool), nil
}

// RandomStrategy samples k documents uniformly without replacement from
// the whole corpus. The query text is ignored.
type RandomStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomStrategy creates a random strategy drawing from src.
// A nil src seeds from the clock.
func NewRandomStrategy(src rand.Source) *RandomStrategy {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1|1)
	}
	return &RandomStrategy{rng: rand.New(src)}
}

// Kind implements Strategy.
func (*RandomStrategy) Kind() domain.StrategyKind { return domain.StrategyRandom }

// Retrieve implements Strategy. A corpus of k or fewer documents is
// returned whole, in index order.
func (r *RandomStrategy) Retrieve(ctx context.Context, idx SearchIndex, _ domain.RetrievalQuery, k int) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	all := idx.All()
	if len(all) <= k {
		return slices.Clone(all), nil
	}

	// Partial Fisher-Yates over an index permutation.
	picks := make([]int, len(all))
	for i := range picks {
		picks[i] = i
	}
	r.mu.Lock()
	for i := range k {
		j := i + r.rng.IntN(len(picks)-i)
		picks[i], picks[j] = picks[j], picks[i]
	}
	r.mu.Unlock()

	out := make([]domain.Document, k)
	for i := range k {
		out[i] = all[picks[i]]
	}
	return out, nil
}

// KeywordStrategy ranks documents by how many query words occur in their
// content, case-insensitively, and drops documents with no hits. It never
// embeds, so it still answers when the embedding service is down.
type KeywordStrategy struct{}

// Kind implements Strategy.
func (KeywordStrategy) Kind() domain.StrategyKind { return domain.StrategyKeyword }

// Retrieve implements Strategy. Equal scores keep index order.
func (KeywordStrategy) Retrieve(ctx context.Context, idx SearchIndex, query domain.RetrievalQuery, k int) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := strings.Fields(strings.ToLower(query.Text))
	if k <= 0 || len(words) == 0 {
		return nil, nil
	}

	type hit struct {
		doc   domain.Document
		score int
	}
	var hits []hit
	for _, d := range idx.All() {
		if len(query.Tags) > 0 && !d.HasAnyTag(query.Tags) {
			continue
		}
		text := strings.ToLower(d.Content)
		score := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{doc: d, score: score})
		}
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(b.score, a.score)
	})
	out := make([]domain.Document, 0, min(k, len(hits)))
	for _, h := range hits[:min(k, len(hits))] {
		out = append(out, h.doc)
	}
	return out, nil
}
