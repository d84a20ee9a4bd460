package mcp

import (
	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retriever serves the knowledge base index.
	Retriever driving.Retriever

	// Decks generates and reads decks. Optional: without it the
	// generate_deck tool and deck resources report the service as missing.
	Decks driving.DeckService

	// Defaults supplies k values when a tool call leaves them out.
	Defaults domain.RetrievalSettings

	// Owner is recorded on decks generated through MCP.
	Owner string
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}

func (p *Ports) defaults() domain.RetrievalSettings {
	if p.Defaults == (domain.RetrievalSettings{}) {
		return domain.DefaultAppSettings().Retrieval
	}
	return p.Defaults
}
