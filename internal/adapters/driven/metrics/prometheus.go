// Package metrics records operational metrics with the Prometheus client library.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// Ensure Prometheus implements the interface.
var _ driven.Metrics = (*Prometheus)(nil)

const namespace = "kairoscope"

// Prometheus implements driven.Metrics on a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	retrievals        *prometheus.CounterVec
	retrievalDuration *prometheus.HistogramVec
	degraded          prometheus.Counter
	builds            *prometheus.CounterVec
	buildDuration     prometheus.Histogram
	indexDocuments    prometheus.Gauge
	decks             prometheus.Counter
	deckCards         prometheus.Histogram
}

// NewPrometheus creates the metric set and registers it together with
// the Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Strategy retrievals run, by strategy.",
		}, []string{"strategy"}),
		retrievalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Strategy retrieval latency, by strategy.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"strategy"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_degraded_total",
			Help:      "Mixed retrievals that fell back to similarity only.",
		}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Index builds, by final state.",
		}, []string{"result"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Index build duration.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		indexDocuments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_documents",
			Help:      "Documents in the index being served.",
		}),
		decks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decks_generated_total",
			Help:      "Decks generated and stored.",
		}),
		deckCards: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deck_cards",
			Help:      "Cards per generated deck.",
			Buckets:   []float64{5, 10, 25, 50, 100, 150},
		}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.retrievals,
		p.retrievalDuration,
		p.degraded,
		p.builds,
		p.buildDuration,
		p.indexDocuments,
		p.decks,
		p.deckCards,
	)
	return p
}

// RetrievalCompleted implements driven.Metrics.
func (p *Prometheus) RetrievalCompleted(kind domain.StrategyKind, _ int, elapsed time.Duration) {
	p.retrievals.WithLabelValues(kind.String()).Inc()
	p.retrievalDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

// RetrievalDegraded implements driven.Metrics.
func (p *Prometheus) RetrievalDegraded() {
	p.degraded.Inc()
}

// BuildCompleted implements driven.Metrics.
func (p *Prometheus) BuildCompleted(state domain.BuildState, elapsed time.Duration) {
	result := "failed"
	if state == domain.BuildStateSaved {
		result = "saved"
	}
	p.builds.WithLabelValues(result).Inc()
	p.buildDuration.Observe(elapsed.Seconds())
}

// IndexLoaded implements driven.Metrics.
func (p *Prometheus) IndexLoaded(documents int) {
	p.indexDocuments.Set(float64(documents))
}

// DeckGenerated implements driven.Metrics.
func (p *Prometheus) DeckGenerated(cards int) {
	p.decks.Inc()
	p.deckCards.Observe(float64(cards))
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
