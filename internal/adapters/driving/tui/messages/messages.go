// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// RetrievalCompleted carries retrieved documents back to the model.
type RetrievalCompleted struct {
	Query     string
	Strategy  string
	Documents []domain.Document
	Err       error
}

// RebuildCompleted carries the result of an index rebuild.
type RebuildCompleted struct {
	Report *domain.BuildReport
	Err    error
}

// StatusLoaded carries the served index status.
type StatusLoaded struct {
	Status domain.IndexStatus
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewRetrieve is the query input and results view.
	ViewRetrieve
	// ViewDecks lists the owner's decks.
	ViewDecks
	// ViewDeck shows the cards of one deck.
	ViewDeck
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewRetrieve:
		return "retrieve"
	case ViewDecks:
		return "decks"
	case ViewDeck:
		return "deck"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// DecksLoaded carries the owner's decks.
type DecksLoaded struct {
	Decks []domain.Deck
	Err   error
}

// DeckSelected signals a deck was chosen from the list.
type DeckSelected struct {
	ID string
}

// DeckLoaded carries a deck with its cards.
type DeckLoaded struct {
	Deck *domain.Deck
	Err  error
}

// DeckDeleted signals a deck was deleted.
type DeckDeleted struct {
	ID  string
	Err error
}
