package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/kairoscope/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// --- Mock implementations shared by the retrieval, builder and deck tests ---

const testDimensions = 4

// mockEmbedder returns fixed vectors for known texts and a hash-derived
// vector for anything else.
type mockEmbedder struct {
	model   string
	known   map[string][]float32
	err     error
	batches atomic.Int32
	queries atomic.Int32
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{model: "mock-embed", known: make(map[string][]float32)}
}

func (m *mockEmbedder) vector(text string) []float32 {
	if v, ok := m.known[text]; ok {
		return v
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	sum := h.Sum64()
	v := make([]float32, testDimensions)
	for i := range v {
		v[i] = float32((sum>>(i*16))&0xffff) / 0xffff
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.queries.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batches.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return testDimensions }

func (m *mockEmbedder) ModelName() string { return m.model }

func (m *mockEmbedder) Ping(context.Context) error { return m.err }

func (m *mockEmbedder) Close() error { return nil }

// mockIndexStore keeps saved indexes in memory keyed by path.
type mockIndexStore struct {
	mu      sync.Mutex
	saved   map[string]storedIndex
	saveErr error
	saves   int
}

type storedIndex struct {
	manifest driven.IndexManifest
	entries  []driven.IndexEntry
}

func newMockIndexStore() *mockIndexStore {
	return &mockIndexStore{saved: make(map[string]storedIndex)}
}

func (m *mockIndexStore) Save(_ context.Context, path string, manifest driven.IndexManifest, entries []driven.IndexEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[path] = storedIndex{manifest: manifest, entries: entries}
	return nil
}

func (m *mockIndexStore) Load(_ context.Context, path string) (driven.IndexManifest, []driven.IndexEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saved[path]
	if !ok {
		return driven.IndexManifest{}, nil, domain.ErrNotFound
	}
	return s.manifest, s.entries, nil
}

// mockLoader returns a fixed source set. When gate is set, Load blocks
// until it is closed.
type mockLoader struct {
	set  *driven.SourceSet
	err  error
	gate chan struct{}
}

func (m *mockLoader) Load(ctx context.Context) (*driven.SourceSet, error) {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.set, nil
}

func (m *mockLoader) Root() string { return "/kb" }

// mockPipeline splits unstructured text on blank lines and records a
// chunk total one higher than produced, as if one fragment was too short.
type mockPipeline struct {
	err error
}

func (m *mockPipeline) Process(_ context.Context, doc *domain.Document) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	parts := strings.Split(doc.Content, "\n\n")
	out := make([]domain.Document, 0, len(parts))
	for i, p := range parts {
		meta := domain.CloneMetadata(doc.Metadata)
		meta[domain.MetaChunkIndex] = i
		meta[domain.MetaChunkTotal] = len(parts) + 1
		out = append(out, domain.Document{ID: doc.ID + "#" + string(rune('0'+i)), Content: p, Metadata: meta})
	}
	return out, nil
}

// recordingMetrics counts calls.
type recordingMetrics struct {
	mu          sync.Mutex
	retrievals  map[domain.StrategyKind]int
	degraded    int
	builds      []domain.BuildState
	indexLoaded []int
	decks       []int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{retrievals: make(map[domain.StrategyKind]int)}
}

func (m *recordingMetrics) RetrievalCompleted(kind domain.StrategyKind, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrievals[kind]++
}

func (m *recordingMetrics) RetrievalDegraded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded++
}

func (m *recordingMetrics) BuildCompleted(state domain.BuildState, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builds = append(m.builds, state)
}

func (m *recordingMetrics) IndexLoaded(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexLoaded = append(m.indexLoaded, n)
}

func (m *recordingMetrics) DeckGenerated(cards int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decks = append(m.decks, cards)
}

// failingStrategy always errors.
type failingStrategy struct {
	kind domain.StrategyKind
}

var errStrategy = errors.New("strategy exploded")

func (f failingStrategy) Kind() domain.StrategyKind { return f.kind }

func (f failingStrategy) Retrieve(context.Context, SearchIndex, domain.RetrievalQuery, int) ([]domain.Document, error) {
	return nil, errStrategy
}

// --- Fixtures ---

func doc(id, content string) domain.Document {
	return domain.Document{
		ID:       id,
		Content:  content,
		Metadata: map[string]any{domain.MetaSourceType: domain.SourceTypeStructured},
	}
}

// newTestIndex builds an EmbeddingIndex over docs using the flat index.
func newTestIndex(embedder *mockEmbedder, docs ...domain.Document) *EmbeddingIndex {
	vectors, err := flat.New(testDimensions)
	if err != nil {
		panic(err)
	}
	for _, d := range docs {
		if err := vectors.Add(d, embedder.vector(d.Content)); err != nil {
			panic(err)
		}
	}
	return NewEmbeddingIndex(vectors, embedder, driven.IndexManifest{Model: embedder.ModelName()})
}

// lineEmbedder places n documents on a line so distance order is known:
// "da" sits at 0, "db" at 1, and so on. The query "q" sits at the origin.
func lineEmbedder(n int) (*mockEmbedder, []domain.Document) {
	e := newMockEmbedder()
	e.known["q"] = []float32{0, 0, 0, 0}
	docs := make([]domain.Document, n)
	for i := range n {
		content := "d" + string(rune('a'+i))
		e.known[content] = []float32{float32(i), 0, 0, 0}
		docs[i] = doc(content, content)
	}
	return e, docs
}

func contents(docs []domain.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content
	}
	return out
}
