package flat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

func doc(content string) domain.Document {
	return domain.Document{ID: content, Content: content}
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(doc("origin"), []float32{0, 0}))
	require.NoError(t, idx.Add(doc("near"), []float32{1, 0}))
	require.NoError(t, idx.Add(doc("far"), []float32{5, 5}))
	require.NoError(t, idx.Add(doc("mid"), []float32{2, 2}))
	return idx
}

func contents(results []domain.ScoredDocument) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Document.Content
	}
	return out
}

func TestNew_InvalidDimension(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}

func TestIndex_Search_NearestFirst(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Search(context.Background(), []float32{0, 0}, 3, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"origin", "near", "mid"}, contents(results))
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
	assert.InDelta(t, 1, results[1].Distance, 1e-6)
	assert.InDelta(t, 8, results[2].Distance, 1e-6)
}

func TestIndex_Search_KLargerThanIndex(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Search(context.Background(), []float32{0, 0}, 100, nil)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestIndex_Search_ZeroK(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Search(context.Background(), []float32{0, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_Search_TiesKeepInsertionOrder(t *testing.T) {
	idx, err := New(1)
	require.NoError(t, err)
	for _, c := range []string{"b", "a", "c"} {
		require.NoError(t, idx.Add(doc(c), []float32{1}))
	}

	for i := 0; i < 5; i++ {
		results, err := idx.Search(context.Background(), []float32{0}, 3, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a", "c"}, contents(results))
	}
}

func TestIndex_Search_Filter(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Search(context.Background(), []float32{0, 0}, 10, func(d domain.Document) bool {
		return d.Content != "origin"
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "mid", "far"}, contents(results))
}

func TestIndex_Search_DimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Search(context.Background(), []float32{0, 0, 0}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestIndex_Search_CancelledContext(t *testing.T) {
	idx := newTestIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Search(ctx, []float32{0, 0}, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex_Add_CopiesVector(t *testing.T) {
	idx, err := New(2)
	require.NoError(t, err)
	v := []float32{1, 1}
	require.NoError(t, idx.Add(doc("x"), v))
	v[0] = 100

	assert.Equal(t, []float32{1, 1}, idx.Entries()[0].Vector)
}

func TestIndex_Add_WrongDimension(t *testing.T) {
	idx, err := New(2)
	require.NoError(t, err)

	err = idx.Add(doc("x"), []float32{1})
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	assert.Equal(t, 0, idx.Len())
}

func TestFromEntries(t *testing.T) {
	src := newTestIndex(t)

	rebuilt, err := FromEntries(src.Dimensions(), src.Entries())
	require.NoError(t, err)
	assert.Equal(t, src.Len(), rebuilt.Len())

	a, err := src.Search(context.Background(), []float32{1, 1}, 4, nil)
	require.NoError(t, err)
	b, err := rebuilt.Search(context.Background(), []float32{1, 1}, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, contents(a), contents(b))
}

func TestFromEntries_Mismatch(t *testing.T) {
	_, err := FromEntries(3, []driven.IndexEntry{{Document: doc("x"), Vector: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestIndex_ConcurrentSearch(t *testing.T) {
	idx := newTestIndex(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := idx.Search(context.Background(), []float32{0, 0}, 2, nil)
			assert.NoError(t, err)
			assert.Equal(t, []string{"origin", "near"}, contents(results))
		}()
	}
	wg.Wait()
}

func TestNewVectorIndex(t *testing.T) {
	idx, err := NewVectorIndex(3)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Dimensions())

	idx, err = NewVectorIndex(0)
	assert.Error(t, err)
	assert.Nil(t, idx)
}
