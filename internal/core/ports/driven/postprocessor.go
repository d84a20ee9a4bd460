package driven

import (
	"context"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// PostProcessor turns an unstructured document into retrievable fragments.
// PostProcessors are chained in a pipeline.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a parent document and the fragments produced so far.
	// A processor that creates fragments (the chunker) receives nil and returns new ones.
	// A processor that refines fragments receives and returns them.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Document) ([]domain.Document, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// Returns the final fragments after all processing.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Document, error)
}
