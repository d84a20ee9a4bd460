// Package deck provides the card view for a single deck in the TUI.
package deck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driving"
)

// ErrNoDeckService indicates that no deck service was provided.
var ErrNoDeckService = errors.New("deck service not available")

// View shows the cards of one deck as a scrollable column.
type View struct {
	styles      *styles.Styles
	deckService driving.DeckService
	owner       string
	ctx         context.Context

	deck         *domain.Deck
	lines        []string
	scrollOffset int
	width        int
	height       int
	ready        bool
	loading      bool
	err          error
}

// NewView creates a new deck view.
func NewView(s *styles.Styles, deckService driving.DeckService, owner string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:      s,
		deckService: deckService,
		owner:       owner,
		ctx:         context.Background(),
		width:       80,
		height:      24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Open clears the view and loads the deck with the given id.
func (v *View) Open(id string) tea.Cmd {
	v.deck = nil
	v.lines = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = true

	svc, ctx, owner := v.deckService, v.ctx, v.owner
	return func() tea.Msg {
		if svc == nil {
			return messages.DeckLoaded{Err: ErrNoDeckService}
		}
		d, err := svc.Get(ctx, id)
		if err == nil && d.Owner != owner {
			d, err = nil, domain.ErrNotFound
		}
		return messages.DeckLoaded{Deck: d, Err: err}
	}
}

// Update handles messages for the deck view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DeckLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.deck = msg.Deck
		v.layout()
		return v, nil

	case messages.ErrorOccurred:
		v.loading = false
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "pgup", "ctrl+u":
		v.scrollOffset = max(v.scrollOffset-v.visibleLines(), 0)
	case "pgdown", "ctrl+d":
		v.scrollOffset = min(v.scrollOffset+v.visibleLines(), v.maxScrollOffset())
	case "home", "g":
		v.scrollOffset = 0
	case "end", "G":
		v.scrollOffset = v.maxScrollOffset()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewDecks}
		}
	}

	return v, nil
}

// layout renders every card at the current width and splits the result
// into scrollable lines.
func (v *View) layout() {
	v.lines = nil
	if v.deck == nil {
		return
	}

	card := v.styles.Card(v.deck.Color).Width(max(v.width-6, 20))
	for i, c := range v.deck.Cards {
		rendered := card.Render(fmt.Sprintf("%d. %s", i+1, c.Text))
		v.lines = append(v.lines, strings.Split(rendered, "\n")...)
		v.lines = append(v.lines, "")
	}
	v.scrollOffset = min(v.scrollOffset, v.maxScrollOffset())
}

func (v *View) visibleLines() int {
	// title, subtitle, help and padding
	return max(v.height-8, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the deck.
func (v *View) View() string {
	var b strings.Builder

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading deck..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case v.deck == nil:
		b.WriteString(v.styles.Muted.Render("No deck selected"))
	default:
		v.renderDeck(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back"))

	return b.String()
}

func (v *View) renderDeck(b *strings.Builder) {
	b.WriteString(v.styles.Title.Render(v.deck.Name))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%s · %s · %d cards",
		v.deck.Discipline, v.deck.BlockDescription, len(v.deck.Cards))))
	b.WriteString("\n\n")

	if len(v.lines) == 0 {
		b.WriteString(v.styles.Muted.Render("(No cards)"))
		return
	}

	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(v.lines))
	b.WriteString(strings.Join(v.lines[v.scrollOffset:end], "\n"))

	if len(v.lines) > visible {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  Line %d-%d of %d",
			v.scrollOffset+1, end, len(v.lines))))
	}
}

// SetDimensions sets the view dimensions and re-lays out the cards.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.layout()
}

// Deck returns the loaded deck.
func (v *View) Deck() *domain.Deck {
	return v.deck
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
