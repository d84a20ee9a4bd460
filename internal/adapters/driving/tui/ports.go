// Package tui provides the interactive knowledge base explorer.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retriever serves the knowledge base index.
	Retriever driving.Retriever

	// Decks lists and shows generated decks. Optional.
	Decks driving.DeckService

	// Defaults supplies the k values used for each query.
	Defaults domain.RetrievalSettings

	// Owner selects whose decks are listed.
	Owner string
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
