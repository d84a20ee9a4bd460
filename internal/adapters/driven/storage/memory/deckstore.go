package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// Ensure DeckStore implements the interface.
var _ driven.DeckStore = (*DeckStore)(nil)

// DeckStore is an in-memory implementation of driven.DeckStore.
type DeckStore struct {
	mu    sync.RWMutex
	decks map[string]domain.Deck
}

// NewDeckStore creates a new in-memory deck store.
func NewDeckStore() *DeckStore {
	return &DeckStore{
		decks: make(map[string]domain.Deck),
	}
}

// Save stores a new deck. IDs, card positions and the creation time are
// filled in when missing.
func (s *DeckStore) Save(_ context.Context, deck *domain.Deck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.decks {
		if d.Owner == deck.Owner && d.Name == deck.Name {
			return fmt.Errorf("%w: %q", domain.ErrDuplicateDeck, deck.Name)
		}
	}

	if deck.ID == "" {
		deck.ID = uuid.New().String()
	}
	if deck.CreatedAt.IsZero() {
		deck.CreatedAt = time.Now().UTC()
	}
	for i := range deck.Cards {
		if deck.Cards[i].ID == "" {
			deck.Cards[i].ID = uuid.New().String()
		}
		deck.Cards[i].Position = i
	}

	stored := *deck
	stored.Cards = slices.Clone(deck.Cards)
	s.decks[deck.ID] = stored
	return nil
}

// Get retrieves a deck by ID.
func (s *DeckStore) Get(_ context.Context, id string) (*domain.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deck, ok := s.decks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	deck.Cards = slices.Clone(deck.Cards)
	return &deck, nil
}

// List returns an owner's decks, newest first, without cards.
func (s *DeckStore) List(_ context.Context, owner string) ([]domain.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var decks []domain.Deck
	for _, d := range s.decks {
		if d.Owner == owner {
			d.Cards = nil
			decks = append(decks, d)
		}
	}
	slices.SortFunc(decks, func(a, b domain.Deck) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return decks, nil
}

// Count returns the number of decks an owner has.
func (s *DeckStore) Count(_ context.Context, owner string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, d := range s.decks {
		if d.Owner == owner {
			n++
		}
	}
	return n, nil
}

// NameExists reports whether the owner already has a deck with this name.
func (s *DeckStore) NameExists(_ context.Context, owner, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.decks {
		if d.Owner == owner && d.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes a deck.
func (s *DeckStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.decks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.decks, id)
	return nil
}

// Close is a no-op for the memory store.
func (s *DeckStore) Close() error {
	return nil
}
