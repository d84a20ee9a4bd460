package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// deckStore implements driven.DeckStore.
type deckStore struct {
	store *Store
}

var _ driven.DeckStore = (*deckStore)(nil)

// Save inserts a deck and its cards in one transaction.
func (s *deckStore) Save(ctx context.Context, deck *domain.Deck) error {
	if deck.ID == "" {
		deck.ID = uuid.New().String()
	}
	if deck.CreatedAt.IsZero() {
		deck.CreatedAt = time.Now().UTC()
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO decks (id, owner, name, discipline, block_description, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, deck.ID, deck.Owner, deck.Name, deck.Discipline, deck.BlockDescription, deck.Color, deck.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", domain.ErrDuplicateDeck, deck.Name)
		}
		return fmt.Errorf("saving deck: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO cards (id, deck_id, position, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing card insert: %w", err)
	}
	defer stmt.Close()

	for i := range deck.Cards {
		card := &deck.Cards[i]
		if card.ID == "" {
			card.ID = uuid.New().String()
		}
		card.Position = i
		if _, err := stmt.ExecContext(ctx, card.ID, deck.ID, card.Position, card.Text); err != nil {
			return fmt.Errorf("saving card %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing deck: %w", err)
	}
	return nil
}

// Get retrieves a deck with its cards by ID.
func (s *deckStore) Get(ctx context.Context, id string) (*domain.Deck, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, owner, name, discipline, block_description, color, created_at
		FROM decks WHERE id = ?
	`, id)

	deck, err := scanDeck(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, position, text FROM cards WHERE deck_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying cards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var card domain.Card
		if err := rows.Scan(&card.ID, &card.Position, &card.Text); err != nil {
			return nil, fmt.Errorf("scanning card: %w", err)
		}
		deck.Cards = append(deck.Cards, card)
	}
	return deck, rows.Err()
}

// List returns an owner's decks, newest first, without cards.
func (s *deckStore) List(ctx context.Context, owner string) ([]domain.Deck, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, owner, name, discipline, block_description, color, created_at
		FROM decks WHERE owner = ?
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("querying decks: %w", err)
	}
	defer rows.Close()

	var decks []domain.Deck
	for rows.Next() {
		deck, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		decks = append(decks, *deck)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating decks: %w", err)
	}

	slices.SortStableFunc(decks, func(a, b domain.Deck) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return decks, nil
}

// Count returns the number of decks an owner has.
func (s *deckStore) Count(ctx context.Context, owner string) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM decks WHERE owner = ?", owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting decks: %w", err)
	}
	return n, nil
}

// NameExists reports whether the owner already has a deck with this name.
func (s *deckStore) NameExists(ctx context.Context, owner, name string) (bool, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM decks WHERE owner = ? AND name = ?", owner, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking deck name: %w", err)
	}
	return n > 0, nil
}

// Delete removes a deck; its cards go with it through the foreign key cascade.
func (s *deckStore) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM decks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting deck: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting deck: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Close is a no-op; the owning Store closes the connection.
func (s *deckStore) Close() error {
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeck(row rowScanner) (*domain.Deck, error) {
	var deck domain.Deck
	var createdAt sql.NullTime
	if err := row.Scan(&deck.ID, &deck.Owner, &deck.Name, &deck.Discipline,
		&deck.BlockDescription, &deck.Color, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning deck: %w", err)
	}
	if createdAt.Valid {
		deck.CreatedAt = createdAt.Time
	}
	return &deck, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
