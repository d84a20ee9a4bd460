package driving

import (
	"context"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// Retriever is the entry point the rest of the application uses to pull
// inspiration documents from the knowledge base.
type Retriever interface {
	// MixedRetrieve runs similarity, divergence and random retrieval for the
	// query and returns their merged results with no repeated content.
	// Falls back to similarity only when a strategy fails.
	MixedRetrieve(ctx context.Context, query domain.RetrievalQuery) ([]domain.Document, error)

	// Retrieve runs a single strategy.
	Retrieve(ctx context.Context, kind domain.StrategyKind, query domain.RetrievalQuery) ([]domain.Document, error)

	// Rebuild rebuilds the persisted index from the knowledge base and
	// swaps it in for readers once saved. Concurrent calls are serialised.
	Rebuild(ctx context.Context) (*domain.BuildReport, error)

	// Status describes the index currently being served.
	Status(ctx context.Context) domain.IndexStatus
}
