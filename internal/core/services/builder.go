package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

// Builder defaults.
const (
	DefaultEmbedBatchSize   = 32
	DefaultEmbedConcurrency = 4
)

// BuilderConfig holds the builder's collaborators and limits.
type BuilderConfig struct {
	Loader      driven.SourceLoader
	Pipeline    driven.PostProcessorPipeline
	Embedder    driven.EmbeddingService
	Store       driven.IndexStore
	NewIndex    driven.VectorIndexFactory
	Metrics     driven.Metrics
	IndexPath   string
	BatchSize   int
	Concurrency int

	// RequestsPerSecond throttles embedding batches. Zero disables throttling.
	RequestsPerSecond float64
}

// Builder runs the index build pipeline:
// IDLE, LOADING_SOURCES, PROCESSING, EMBEDDING, SAVED, with FAILED
// reachable from any non-terminal state. It is not safe to run two
// builds at once; RetrievalService serialises them.
type Builder struct {
	cfg BuilderConfig
	now func() time.Time
}

// NewBuilder creates a builder, filling defaults.
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbedBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultEmbedConcurrency
	}
	if cfg.Metrics == nil {
		cfg.Metrics = driven.NopMetrics{}
	}
	return &Builder{cfg: cfg, now: time.Now}
}

// buildRun tracks one run's report and state.
type buildRun struct {
	report *domain.BuildReport
}

func (r *buildRun) advance(next domain.BuildState) {
	if !r.report.State.CanTransition(next) {
		logger.Error("invalid build transition %s -> %s", r.report.State, next)
	}
	logger.Debug("build: %s -> %s", r.report.State, next)
	r.report.State = next
}

// Build loads, chunks, embeds and persists a fresh index. The new index
// only replaces the one at IndexPath once fully saved. On failure the
// report is returned with state FAILED alongside the error.
func (b *Builder) Build(ctx context.Context) (*domain.BuildReport, *EmbeddingIndex, error) {
	logger.Section("Index Build")

	run := &buildRun{report: &domain.BuildReport{
		State:     domain.BuildStateIdle,
		Path:      b.cfg.IndexPath,
		StartedAt: b.now(),
	}}

	idx, err := b.build(ctx, run)
	run.report.Duration = b.now().Sub(run.report.StartedAt)
	if err != nil {
		run.advance(domain.BuildStateFailed)
		run.report.Err = err
		logger.Warn("index build failed: %v", err)
	} else {
		logger.Info("index built: %d documents, %d dimensions, %s",
			run.report.Indexed, run.report.Dimensions, run.report.Duration.Round(time.Millisecond))
	}
	b.cfg.Metrics.BuildCompleted(run.report.State, run.report.Duration)
	return run.report, idx, err
}

func (b *Builder) build(ctx context.Context, run *buildRun) (*EmbeddingIndex, error) {
	report := run.report

	run.advance(domain.BuildStateLoadingSources)
	if b.cfg.Embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrConfiguration)
	}
	if b.cfg.Loader == nil || b.cfg.Store == nil || b.cfg.NewIndex == nil {
		return nil, fmt.Errorf("%w: builder is missing a collaborator", domain.ErrConfiguration)
	}
	sources, err := b.cfg.Loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	report.Skipped = append(report.Skipped, sources.Skipped...)
	report.StructuredDocuments = len(sources.Structured)
	report.UnstructuredFiles = len(sources.Unstructured)
	if sources.IsEmpty() {
		return nil, fmt.Errorf("%w: %w under %s", domain.ErrConfiguration, domain.ErrNoDocuments, b.cfg.Loader.Root())
	}

	run.advance(domain.BuildStateProcessing)
	docs, err := b.process(ctx, sources, report)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		logger.Warn("no documents survived processing, indexing a placeholder")
		report.Placeholder = true
		docs = []domain.Document{placeholderDocument()}
	}

	run.advance(domain.BuildStateEmbedding)
	vectors, err := b.embed(ctx, docs)
	if err != nil {
		return nil, err
	}
	index, err := b.cfg.NewIndex(len(vectors[0]))
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	for i, doc := range docs {
		if err := index.Add(doc, vectors[i]); err != nil {
			return nil, fmt.Errorf("index %q: %w", doc.ID, err)
		}
	}

	manifest := driven.IndexManifest{
		Model:      b.cfg.Embedder.ModelName(),
		Dimensions: index.Dimensions(),
		Documents:  index.Len(),
		BuiltAt:    b.now().UTC(),
	}
	if err := b.cfg.Store.Save(ctx, b.cfg.IndexPath, manifest, index.Entries()); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}

	run.advance(domain.BuildStateSaved)
	report.Indexed = index.Len()
	report.Dimensions = index.Dimensions()
	report.Model = manifest.Model
	return NewEmbeddingIndex(index, b.cfg.Embedder, manifest), nil
}

// process keeps structured documents whole and chunks unstructured ones.
func (b *Builder) process(ctx context.Context, sources *driven.SourceSet, report *domain.BuildReport) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(sources.Structured)+len(sources.Unstructured))
	docs = append(docs, sources.Structured...)

	if b.cfg.Pipeline == nil {
		docs = append(docs, sources.Unstructured...)
		return docs, nil
	}

	for i := range sources.Unstructured {
		parent := &sources.Unstructured[i]
		chunks, err := b.cfg.Pipeline.Process(ctx, parent)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", parent.MetaString(domain.MetaSourceFile), err)
		}
		if dropped := droppedChunks(chunks); dropped > 0 {
			report.Skipped = append(report.Skipped, domain.SkipRecord{
				File:   parent.MetaString(domain.MetaSourceFile),
				Reason: domain.SkipReasonTooShort,
				Detail: fmt.Sprintf("%d fragments below the minimum length", dropped),
			})
		}
		report.Chunks += len(chunks)
		docs = append(docs, chunks...)
	}
	logger.Debug("processed %d structured documents and %d chunks", len(sources.Structured), report.Chunks)
	return docs, nil
}

// droppedChunks infers how many fragments the chunker filtered out from
// the sibling total it records.
func droppedChunks(chunks []domain.Document) int {
	if len(chunks) == 0 {
		return 0
	}
	total, ok := chunks[0].Metadata[domain.MetaChunkTotal].(int)
	if !ok {
		return 0
	}
	return max(total-len(chunks), 0)
}

// embed embeds docs in batches, fanned out up to the concurrency limit
// and paced by the rate limiter. Vectors keep document order.
func (b *Builder) embed(ctx context.Context, docs []domain.Document) ([][]float32, error) {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if b.cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(b.cfg.RequestsPerSecond), max(1, b.cfg.Concurrency))
	}

	vectors := make([][]float32, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)

	for start := 0; start < len(docs); start += b.cfg.BatchSize {
		end := min(start+b.cfg.BatchSize, len(docs))
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = docs[start+i].Content
			}
			batch, err := b.cfg.Embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed documents %d-%d: %w", start, end-1, err)
			}
			if len(batch) != len(texts) {
				return fmt.Errorf("embed documents %d-%d: got %d vectors for %d texts",
					start, end-1, len(batch), len(texts))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("embedded %d documents in batches of %d", len(docs), b.cfg.BatchSize)
	return vectors, nil
}

func placeholderDocument() domain.Document {
	return domain.Document{
		ID:      uuid.New().String(),
		Content: domain.PlaceholderContent,
		Metadata: map[string]any{
			domain.MetaSourceType: domain.SourceTypePlaceholder,
		},
	}
}
