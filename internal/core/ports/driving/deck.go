package driving

import (
	"context"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// DeckService generates and manages strategy decks.
type DeckService interface {
	// Generate retrieves inspiration, asks the LLM for strategies,
	// names the deck and persists it.
	Generate(ctx context.Context, req domain.DeckRequest) (*domain.Deck, error)

	// Get returns a deck with its cards.
	Get(ctx context.Context, id string) (*domain.Deck, error)

	// List returns an owner's decks without cards.
	List(ctx context.Context, owner string) ([]domain.Deck, error)

	// Delete removes a deck.
	Delete(ctx context.Context, id string) error
}
