package driven

import (
	"time"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// Metrics records operational counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// RetrievalCompleted records one strategy run.
	RetrievalCompleted(kind domain.StrategyKind, results int, elapsed time.Duration)

	// RetrievalDegraded records a mixed retrieval that fell back to similarity only.
	RetrievalDegraded()

	// BuildCompleted records the outcome of an index build.
	BuildCompleted(state domain.BuildState, elapsed time.Duration)

	// IndexLoaded records the size of the index now being served.
	IndexLoaded(documents int)

	// DeckGenerated records a generated deck and its card count.
	DeckGenerated(cards int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

var _ Metrics = NopMetrics{}

// RetrievalCompleted implements Metrics.
func (NopMetrics) RetrievalCompleted(domain.StrategyKind, int, time.Duration) {}

// RetrievalDegraded implements Metrics.
func (NopMetrics) RetrievalDegraded() {}

// BuildCompleted implements Metrics.
func (NopMetrics) BuildCompleted(domain.BuildState, time.Duration) {}

// IndexLoaded implements Metrics.
func (NopMetrics) IndexLoaded(int) {}

// DeckGenerated implements Metrics.
func (NopMetrics) DeckGenerated(int) {}
