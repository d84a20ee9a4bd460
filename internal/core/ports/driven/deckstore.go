package driven

import (
	"context"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// DeckStore persists generated decks and their cards.
type DeckStore interface {
	// Save inserts a deck with its cards.
	// Returns domain.ErrDuplicateDeck if the owner already has a deck with that name.
	Save(ctx context.Context, deck *domain.Deck) error

	// Get retrieves a deck with its cards by ID.
	// Returns domain.ErrNotFound if no deck has that ID.
	Get(ctx context.Context, id string) (*domain.Deck, error)

	// List returns an owner's decks, newest first, without cards.
	List(ctx context.Context, owner string) ([]domain.Deck, error)

	// Count returns the number of decks an owner has.
	Count(ctx context.Context, owner string) (int, error)

	// NameExists reports whether the owner already has a deck with this name.
	NameExists(ctx context.Context, owner, name string) (bool, error)

	// Delete removes a deck and its cards.
	// Returns domain.ErrNotFound if no deck has that ID.
	Delete(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
