// Package cache provides a persistent embedding cache that decorates any
// driven.EmbeddingService. Vectors are stored in BadgerDB keyed by model
// name and the SHA-256 of the text, so rebuilding an unchanged knowledge
// base costs no embedding calls.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/custodia-labs/kairoscope/internal/adapters/driven/storage/codec"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Stats reports cache effectiveness since the service was opened.
type Stats struct {
	Hits   int64
	Misses int64
}

// EmbeddingService serves vectors from the cache and forwards misses to
// the wrapped service.
type EmbeddingService struct {
	db     *badger.DB
	inner  driven.EmbeddingService
	hits   atomic.Int64
	misses atomic.Int64
}

// Open opens (or creates) a cache directory at path in front of inner.
func Open(path string, inner driven.EmbeddingService) (*EmbeddingService, error) {
	return open(badger.DefaultOptions(path), inner)
}

// OpenInMemory creates a cache that lives only as long as the process.
func OpenInMemory(inner driven.EmbeddingService) (*EmbeddingService, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), inner)
}

func open(opts badger.Options, inner driven.EmbeddingService) (*EmbeddingService, error) {
	if inner == nil {
		return nil, errors.New("embedding cache: no embedding service to wrap")
	}
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}
	return &EmbeddingService{db: db, inner: inner}, nil
}

// Embed returns the cached vector for text or computes and stores it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch looks every text up and sends only the misses to the wrapped
// service, in one batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([][]byte, len(texts))
	for i, text := range texts {
		keys[i] = s.key(text)
	}

	if err := s.db.View(func(txn *badger.Txn) error {
		for i, key := range keys {
			vec, err := lookup(txn, key, s.inner.Dimensions())
			if err != nil {
				return err
			}
			out[i] = vec
		}
		return nil
	}); err != nil {
		// A broken cache must not break embedding.
		logger.Warn("embedding cache read failed, bypassing: %v", err)
		clear(out)
	}

	var missTexts []string
	var missIdx []int
	for i, vec := range out {
		if vec == nil {
			missTexts = append(missTexts, texts[i])
			missIdx = append(missIdx, i)
		}
	}
	s.hits.Add(int64(len(texts) - len(missIdx)))
	s.misses.Add(int64(len(missIdx)))
	if len(missIdx) == 0 {
		return out, nil
	}

	computed, err := s.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missTexts) {
		return nil, fmt.Errorf("embedding cache: %d vectors returned for %d texts", len(computed), len(missTexts))
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for j, i := range missIdx {
		out[i] = computed[j]
		if err := wb.Set(keys[i], codec.EncodeVector(computed[j])); err != nil {
			logger.Warn("embedding cache write failed: %v", err)
			return out, nil
		}
	}
	if err := wb.Flush(); err != nil {
		logger.Warn("embedding cache write failed: %v", err)
	}
	return out, nil
}

// lookup returns nil, nil on a miss. Entries of the wrong size are misses.
func lookup(txn *badger.Txn, key []byte, dims int) ([]float32, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var vec []float32
	err = item.Value(func(val []byte) error {
		decoded, derr := codec.DecodeVector(val)
		if derr == nil && len(decoded) == dims {
			vec = decoded
		}
		return nil
	})
	return vec, err
}

func (s *EmbeddingService) key(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return []byte(s.inner.ModelName() + ":" + hex.EncodeToString(sum[:]))
}

// Stats returns hit and miss counts.
func (s *EmbeddingService) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the cache and the wrapped service.
func (s *EmbeddingService) Close() error {
	return errors.Join(s.db.Close(), s.inner.Close())
}
