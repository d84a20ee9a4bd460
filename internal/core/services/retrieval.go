package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driving"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.Retriever = (*RetrievalService)(nil)

// RetrievalService owns the served index. Readers load it through an
// atomic pointer; rebuilds are serialised and swap the pointer only
// after the new index is saved.
type RetrievalService struct {
	builder  *Builder
	store    driven.IndexStore
	embedder driven.EmbeddingService
	newIndex driven.VectorIndexFactory
	mixer    *MixedRetriever
	metrics  driven.Metrics
	path     string

	current  atomic.Pointer[EmbeddingIndex]
	buildMu  sync.Mutex
	building atomic.Bool
	stale    atomic.Bool
}

// NewRetrievalService creates the service. The index is not loaded until
// Load, LoadOrBuild or Rebuild is called.
func NewRetrievalService(cfg BuilderConfig, strategies ...Strategy) *RetrievalService {
	builder := NewBuilder(cfg)
	return &RetrievalService{
		builder:  builder,
		store:    cfg.Store,
		embedder: cfg.Embedder,
		newIndex: cfg.NewIndex,
		mixer:    NewMixedRetriever(builder.cfg.Metrics, strategies...),
		metrics:  builder.cfg.Metrics,
		path:     cfg.IndexPath,
	}
}

// Load reads the persisted index and starts serving it. It returns
// domain.ErrNotFound when nothing is persisted and domain.ErrIndexCorrupt
// when the index is unreadable or was built by an incompatible embedder.
func (s *RetrievalService) Load(ctx context.Context) error {
	if s.embedder == nil {
		return fmt.Errorf("%w: no embedding service configured", domain.ErrConfiguration)
	}

	manifest, entries, err := s.store.Load(ctx, s.path)
	if err != nil {
		return err
	}
	if manifest.Dimensions != s.embedder.Dimensions() {
		return fmt.Errorf("%w: index has %d dimensions, embedder produces %d",
			domain.ErrIndexCorrupt, manifest.Dimensions, s.embedder.Dimensions())
	}
	if manifest.Model != s.embedder.ModelName() {
		return fmt.Errorf("%w: index built with %s, embedder is %s",
			domain.ErrIndexCorrupt, manifest.Model, s.embedder.ModelName())
	}

	vectors, err := s.newIndex(manifest.Dimensions)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexCorrupt, err)
	}
	for _, e := range entries {
		if err := vectors.Add(e.Document, e.Vector); err != nil {
			return err
		}
	}

	s.publish(NewEmbeddingIndex(vectors, s.embedder, manifest))
	logger.Info("loaded index: %d documents from %s", len(entries), s.path)
	return nil
}

// LoadOrBuild loads the persisted index, rebuilding it when it is missing
// or corrupt. Other load errors are returned.
func (s *RetrievalService) LoadOrBuild(ctx context.Context) (*domain.BuildReport, error) {
	err := s.Load(ctx)
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrIndexCorrupt):
		logger.Info("rebuilding index: %v", err)
		return s.Rebuild(ctx)
	default:
		return nil, err
	}
}

// Rebuild builds a fresh index and swaps it in once saved. A concurrent
// call waits for the running build to finish.
func (s *RetrievalService) Rebuild(ctx context.Context) (*domain.BuildReport, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	return s.rebuildLocked(ctx)
}

// TryRebuild is Rebuild without waiting: it returns
// domain.ErrBuildInProgress if another build is running.
func (s *RetrievalService) TryRebuild(ctx context.Context) (*domain.BuildReport, error) {
	if !s.buildMu.TryLock() {
		return nil, domain.ErrBuildInProgress
	}
	defer s.buildMu.Unlock()
	return s.rebuildLocked(ctx)
}

func (s *RetrievalService) rebuildLocked(ctx context.Context) (*domain.BuildReport, error) {
	s.building.Store(true)
	defer s.building.Store(false)

	// Changes arriving during the build may not be in it.
	wasStale := s.stale.Swap(false)

	report, idx, err := s.builder.Build(ctx)
	if err != nil {
		if wasStale {
			s.stale.Store(true)
		}
		return report, err
	}
	s.publish(idx)
	return report, nil
}

func (s *RetrievalService) publish(idx *EmbeddingIndex) {
	s.current.Store(idx)
	s.metrics.IndexLoaded(idx.Len())
}

// MixedRetrieve runs the mixed retriever against the served index.
func (s *RetrievalService) MixedRetrieve(ctx context.Context, query domain.RetrievalQuery) ([]domain.Document, error) {
	idx := s.current.Load()
	if idx == nil {
		return nil, domain.ErrIndexNotLoaded
	}
	return s.mixer.Retrieve(ctx, idx.withSharedQuery(), query)
}

// Retrieve runs a single strategy with the query's k for that kind.
func (s *RetrievalService) Retrieve(ctx context.Context, kind domain.StrategyKind, query domain.RetrievalQuery) ([]domain.Document, error) {
	idx := s.current.Load()
	if idx == nil {
		return nil, domain.ErrIndexNotLoaded
	}
	k := query.K(kind)
	if k <= 0 {
		return nil, fmt.Errorf("%w: k for %s must be positive", domain.ErrInvalidRequest, kind)
	}
	for _, strategy := range s.mixer.Strategies() {
		if strategy.Kind() == kind {
			return s.mixer.run(ctx, strategy, idx, query, k)
		}
	}
	return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidRequest, kind)
}

// MarkStale flags the served index as out of date with the sources.
func (s *RetrievalService) MarkStale(path string) {
	if !s.stale.Swap(true) {
		logger.Info("knowledge base changed (%s); index is stale until rebuilt", path)
	}
}

// WatchSources marks the index stale on every source change reported by
// watcher. It blocks until ctx is done.
func (s *RetrievalService) WatchSources(ctx context.Context, watcher driven.SourceWatcher) error {
	return watcher.Watch(ctx, s.MarkStale)
}

// Status describes the served index.
func (s *RetrievalService) Status(_ context.Context) domain.IndexStatus {
	status := domain.IndexStatus{
		Path:     s.path,
		Stale:    s.stale.Load(),
		Building: s.building.Load(),
	}
	if idx := s.current.Load(); idx != nil {
		m := idx.Manifest()
		status.Loaded = true
		status.Documents = idx.Len()
		status.Dimensions = m.Dimensions
		status.Model = m.Model
		status.BuiltAt = m.BuiltAt
	}
	return status
}
