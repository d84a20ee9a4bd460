package sqlite

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "kairoscope-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func testDeck(owner, name string, createdAt time.Time, cards ...string) *domain.Deck {
	deck := &domain.Deck{
		Owner:            owner,
		Name:             name,
		Discipline:       "música",
		BlockDescription: "no encuentro el estribillo",
		Color:            "#FF8800",
		CreatedAt:        createdAt,
	}
	for _, c := range cards {
		deck.Cards = append(deck.Cards, domain.Card{Text: c})
	}
	return deck
}

func TestNewStore_MigrationsIdempotent(t *testing.T) {
	tempDir := t.TempDir()

	s1, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := NewStore(tempDir)
	require.NoError(t, err)
	defer s2.Close()

	var version int
	require.NoError(t, s2.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
	assert.FileExists(t, s2.Path())
}

func TestDeckStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	decks := store.DeckStore()

	deck := testDeck("ana", "Ritmo Oblicuo", time.Now().UTC().Truncate(time.Second),
		"Escucha al revés.", "Quita una nota.", "Usa el silencio.")
	require.NoError(t, decks.Save(ctx, deck))
	require.NotEmpty(t, deck.ID)

	got, err := decks.Get(ctx, deck.ID)
	require.NoError(t, err)

	assert.Equal(t, "ana", got.Owner)
	assert.Equal(t, "Ritmo Oblicuo", got.Name)
	assert.Equal(t, "#FF8800", got.Color)
	assert.True(t, deck.CreatedAt.Equal(got.CreatedAt), "created_at round trip")
	require.Len(t, got.Cards, 3)
	for i, c := range got.Cards {
		assert.Equal(t, i, c.Position)
		assert.NotEmpty(t, c.ID)
	}
	assert.Equal(t, "Usa el silencio.", got.Cards[2].Text)
}

func TestDeckStore_Get_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.DeckStore().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeckStore_Save_DuplicateName(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	decks := store.DeckStore()

	require.NoError(t, decks.Save(ctx, testDeck("ana", "Mismo", time.Now())))
	err := decks.Save(ctx, testDeck("ana", "Mismo", time.Now()))
	assert.ErrorIs(t, err, domain.ErrDuplicateDeck)

	// Other owners may reuse the name.
	require.NoError(t, decks.Save(ctx, testDeck("luis", "Mismo", time.Now())))
}

func TestDeckStore_ListCountAndNameExists(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	decks := store.DeckStore()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, decks.Save(ctx, testDeck("ana", "Primero", base, "a")))
	require.NoError(t, decks.Save(ctx, testDeck("ana", "Segundo", base.Add(time.Hour), "b")))
	require.NoError(t, decks.Save(ctx, testDeck("luis", "Ajeno", base)))

	list, err := decks.List(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Segundo", list[0].Name, "newest first")
	assert.Empty(t, list[0].Cards, "list omits cards")

	n, err := decks.Count(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	exists, err := decks.NameExists(ctx, "ana", "Primero")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = decks.NameExists(ctx, "luis", "Primero")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeckStore_Delete(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	decks := store.DeckStore()

	deck := testDeck("ana", "Efímero", time.Now(), "uno", "dos")
	require.NoError(t, decks.Save(ctx, deck))
	require.NoError(t, decks.Delete(ctx, deck.ID))

	_, err := decks.Get(ctx, deck.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var cards int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM cards").Scan(&cards))
	assert.Equal(t, 0, cards, "cards cascade with their deck")

	assert.ErrorIs(t, decks.Delete(ctx, deck.ID), domain.ErrNotFound)
}
