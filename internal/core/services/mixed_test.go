package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

func TestMixedRetriever_MergesWithoutRepeats(t *testing.T) {
	embedder, docs := lineEmbedder(20)
	idx := newTestIndex(embedder, docs...)
	metrics := newRecordingMetrics()
	mixer := NewMixedRetriever(metrics, SimilarityStrategy{}, DivergenceStrategy{}, NewRandomStrategy(rand.NewPCG(3, 4)))

	query := domain.RetrievalQuery{Text: "q", KSimilarity: 3, KDivergence: 3, KRandom: 5}
	got, err := mixer.Retrieve(context.Background(), idx, query)

	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), query.Total())
	assert.GreaterOrEqual(t, len(got), 6)
	assert.Equal(t, []string{"da", "db", "dc"}, contents(got[:3]), "similarity results lead")

	seen := make(map[string]bool)
	for _, d := range got {
		assert.False(t, seen[d.Content], "repeated content %q", d.Content)
		seen[d.Content] = true
	}
	assert.Equal(t, 1, metrics.retrievals[domain.StrategySimilarity])
	assert.Equal(t, 1, metrics.retrievals[domain.StrategyDivergence])
	assert.Equal(t, 1, metrics.retrievals[domain.StrategyRandom])
	assert.Zero(t, metrics.degraded)
}

func TestMixedRetriever_OverlapKeepsSimilarityPosition(t *testing.T) {
	// Divergence returns dd, dc, db; dc and db were already placed by
	// similarity and keep those positions.
	embedder, docs := lineEmbedder(4)
	idx := newTestIndex(embedder, docs...)
	mixer := NewMixedRetriever(nil)

	got, err := mixer.Retrieve(context.Background(), idx, domain.RetrievalQuery{Text: "q", KSimilarity: 3, KDivergence: 3, KRandom: 4})

	require.NoError(t, err)
	assert.Equal(t, []string{"da", "db", "dc", "dd"}, contents(got))
}

func TestMixedRetriever_DuplicateContentAcrossDocuments(t *testing.T) {
	embedder := newMockEmbedder()
	idx := newTestIndex(embedder,
		doc("1", "misma frase"),
		doc("2", "misma frase"),
		doc("3", "otra frase"),
	)
	mixer := NewMixedRetriever(nil)

	got, err := mixer.Retrieve(context.Background(), idx, domain.RetrievalQuery{Text: "x", KSimilarity: 3, KRandom: 3})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"misma frase", "otra frase"}, contents(got))
}

func TestMixedRetriever_SkipsZeroK(t *testing.T) {
	embedder, docs := lineEmbedder(5)
	metrics := newRecordingMetrics()
	mixer := NewMixedRetriever(metrics)

	got, err := mixer.Retrieve(context.Background(), newTestIndex(embedder, docs...), domain.RetrievalQuery{Text: "q", KSimilarity: 2})

	require.NoError(t, err)
	assert.Equal(t, []string{"da", "db"}, contents(got))
	assert.Zero(t, metrics.retrievals[domain.StrategyDivergence])
	assert.Zero(t, metrics.retrievals[domain.StrategyRandom])
}

func TestMixedRetriever_InvalidQuery(t *testing.T) {
	embedder, docs := lineEmbedder(2)
	mixer := NewMixedRetriever(nil)

	_, err := mixer.Retrieve(context.Background(), newTestIndex(embedder, docs...), domain.RetrievalQuery{Text: "q"})

	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestMixedRetriever_DegradesToSimilarity(t *testing.T) {
	embedder, docs := lineEmbedder(10)
	metrics := newRecordingMetrics()
	mixer := NewMixedRetriever(metrics,
		SimilarityStrategy{},
		failingStrategy{kind: domain.StrategyDivergence},
		NewRandomStrategy(nil),
	)

	query := domain.RetrievalQuery{Text: "q", KSimilarity: 2, KDivergence: 2, KRandom: 2}
	got, err := mixer.Retrieve(context.Background(), newTestIndex(embedder, docs...), query)

	require.NoError(t, err)
	assert.Equal(t, []string{"da", "db"}, contents(got))
	assert.Equal(t, 1, metrics.degraded)
}

func TestMixedRetriever_FallbackWithoutSimilarityCount(t *testing.T) {
	embedder, docs := lineEmbedder(4)
	mixer := NewMixedRetriever(nil, failingStrategy{kind: domain.StrategyRandom})

	got, err := mixer.Retrieve(context.Background(), newTestIndex(embedder, docs...), domain.RetrievalQuery{Text: "q", KRandom: 3})

	require.NoError(t, err)
	assert.Equal(t, []string{"da"}, contents(got))
}

func TestMixedRetriever_FallbackFails(t *testing.T) {
	embedder, docs := lineEmbedder(4)
	idx := newTestIndex(embedder, docs...)
	embedder.err = errors.New("quota exceeded")
	mixer := NewMixedRetriever(nil)

	_, err := mixer.Retrieve(context.Background(), idx, domain.RetrievalQuery{Text: "q", KSimilarity: 1, KDivergence: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "similarity fallback")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestMixedRetriever_KeywordFallbackWhenEmbeddingFails(t *testing.T) {
	embedder := newMockEmbedder()
	idx := newTestIndex(embedder,
		doc("1", "Invert the order."),
		doc("2", "Abandon the plan."),
		doc("3", "Silence."),
	)
	embedder.err = errors.New("quota exceeded")
	metrics := newRecordingMetrics()
	mixer := NewMixedRetriever(metrics)

	got, err := mixer.Retrieve(context.Background(), idx, domain.RetrievalQuery{Text: "plan", KSimilarity: 2, KDivergence: 1, KRandom: 1})

	require.NoError(t, err)
	assert.Equal(t, []string{"Abandon the plan."}, contents(got))
	assert.Equal(t, 1, metrics.degraded)
	assert.Equal(t, 1, metrics.retrievals[domain.StrategyKeyword])
}

func TestDedupByContent(t *testing.T) {
	in := []domain.Document{doc("1", "a"), doc("2", "b"), doc("3", "a"), doc("4", "c"), doc("5", "b")}

	got := dedupByContent(in)

	assert.Equal(t, []string{"1", "2", "4"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Len(t, got, 3)
}
