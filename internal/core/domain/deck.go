package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultDeckColor is used when a request carries no colour.
const DefaultDeckColor = "#000000"

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Card is one strategy within a deck.
type Card struct {
	// ID is the unique identifier for the card.
	ID string

	// Position is the card's 0-based order within the deck.
	Position int

	// Text is the strategy text.
	Text string
}

// Deck is a generated, persisted set of strategy cards.
type Deck struct {
	// ID is the unique identifier for the deck.
	ID string

	// Owner identifies who generated the deck. Names are unique per owner.
	Owner string

	// Name is the generated deck name.
	Name string

	// Discipline is the creative discipline the deck targets.
	Discipline string

	// BlockDescription describes the creative block.
	BlockDescription string

	// Color is the chosen #RRGGBB colour.
	Color string

	// Cards holds the strategies in order.
	Cards []Card

	// CreatedAt is when the deck was generated.
	CreatedAt time.Time
}

// DeckRequest carries the inputs for generating a deck.
type DeckRequest struct {
	// Owner identifies the requester.
	Owner string

	// Discipline is the creative discipline, e.g. "ilustración".
	Discipline string

	// BlockDescription describes the creative block.
	BlockDescription string

	// Color is a #RRGGBB colour. Empty means DefaultDeckColor.
	Color string

	// NumCards caps the number of cards. Zero means the configured default.
	NumCards int
}

// Normalise trims fields and fills the colour default.
func (r DeckRequest) Normalise() DeckRequest {
	r.Owner = strings.TrimSpace(r.Owner)
	r.Discipline = strings.TrimSpace(r.Discipline)
	r.BlockDescription = strings.TrimSpace(r.BlockDescription)
	r.Color = strings.TrimSpace(r.Color)
	if r.Color == "" {
		r.Color = DefaultDeckColor
	}
	return r
}

// Validate checks required fields and the colour format.
func (r DeckRequest) Validate() error {
	if strings.TrimSpace(r.Discipline) == "" {
		return fmt.Errorf("%w: discipline is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.BlockDescription) == "" {
		return fmt.Errorf("%w: block description is required", ErrInvalidRequest)
	}
	if r.Color != "" && !IsHexColor(r.Color) {
		return fmt.Errorf("%w: color must be #RRGGBB, got %q", ErrInvalidRequest, r.Color)
	}
	if r.NumCards < 0 {
		return fmt.Errorf("%w: card count must be non-negative", ErrInvalidRequest)
	}
	return nil
}

// IsHexColor reports whether s is a #RRGGBB colour.
func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}
