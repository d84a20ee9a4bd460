// Package decks provides the deck list view for the TUI.
package decks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driving"
)

// ErrNoDeckService indicates that no deck service was provided.
var ErrNoDeckService = errors.New("deck service not available")

// View lists one owner's decks.
type View struct {
	styles      *styles.Styles
	deckService driving.DeckService
	owner       string
	ctx         context.Context

	decks         []domain.Deck
	selected      int
	scrollOffset  int
	width         int
	height        int
	ready         bool
	loading       bool
	confirmDelete bool
	err           error
}

// NewView creates a new deck list view.
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

// Init loads the decks.
func (v *View) Init() tea.Cmd {
	return v.Reload()
}

// Reload clears any pending state and fetches the decks again.
func (v *View) Reload() tea.Cmd {
	v.loading = true
	v.confirmDelete = false
	v.err = nil

	svc, ctx, owner := v.deckService, v.ctx, v.owner
	return func() tea.Msg {
		if svc == nil {
			return messages.DecksLoaded{Err: ErrNoDeckService}
		}
		decks, err := svc.List(ctx, owner)
		return messages.DecksLoaded{Decks: decks, Err: err}
	}
}

func (v *View) deleteDeck(id string) tea.Cmd {
	svc, ctx := v.deckService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DeckDeleted{ID: id, Err: ErrNoDeckService}
		}
		return messages.DeckDeleted{ID: id, Err: svc.Delete(ctx, id)}
	}
}

// Update handles messages for the deck list view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.confirmDelete {
			return v.handleConfirmKey(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DecksLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.decks = msg.Decks
		v.selected = min(v.selected, max(len(v.decks)-1, 0))
		v.adjustScroll()
		return v, nil

	case messages.DeckDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		return v, v.Reload()

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
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.decks)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "enter":
		if d := v.SelectedDeck(); d != nil {
			id := d.ID
			return v, func() tea.Msg {
				return messages.DeckSelected{ID: id}
			}
		}
	case "d":
		if v.SelectedDeck() != nil {
			v.confirmDelete = true
		}
	case "r":
		return v, v.Reload()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	return v, nil
}

// handleConfirmKey deletes on y and cancels on anything else.
func (v *View) handleConfirmKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	v.confirmDelete = false
	if msg.String() != "y" {
		return v, nil
	}
	d := v.SelectedDeck()
	if d == nil {
		return v, nil
	}
	return v, v.deleteDeck(d.ID)
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	// title, help and padding
	return max(v.height-8, 1)
}

// View renders the deck list.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Decks (%d)", len(v.decks))))
	b.WriteString("  ")
	b.WriteString(v.styles.Muted.Render(v.owner))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading decks..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.decks) == 0:
		b.WriteString(v.styles.Muted.Render("No decks yet. Generate one with 'kairoscope deck generate'."))
	default:
		visible := v.visibleItemCount()
		for i := v.scrollOffset; i < len(v.decks) && i < v.scrollOffset+visible; i++ {
			b.WriteString(v.renderDeck(i, &v.decks[i]))
			b.WriteString("\n")
		}
		if len(v.decks) > visible {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
				v.scrollOffset+1,
				min(v.scrollOffset+visible, len(v.decks)),
				len(v.decks))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	if v.confirmDelete {
		if d := v.SelectedDeck(); d != nil {
			b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Delete %q? [y/N]", d.Name)))
			return b.String()
		}
	}
	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] open  [d] delete  [r] reload  [esc] back"))

	return b.String()
}

func (v *View) renderDeck(index int, d *domain.Deck) string {
	name := list.Truncate(d.Name, max(v.width/2-4, 10))
	line := fmt.Sprintf("%-*s  %-16s %3d cards  %s",
		max(v.width/2-4, 10), name,
		list.Truncate(d.Discipline, 16),
		len(d.Cards),
		d.CreatedAt.Local().Format(time.DateOnly))

	if index == v.selected {
		return v.styles.Selected.Render("> " + line)
	}
	return v.styles.Normal.Render("  " + line)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Decks returns the loaded decks.
func (v *View) Decks() []domain.Deck {
	return v.decks
}

// SelectedDeck returns the highlighted deck, or nil when the list is empty.
func (v *View) SelectedDeck() *domain.Deck {
	if v.selected < len(v.decks) {
		return &v.decks[v.selected]
	}
	return nil
}

// ConfirmingDelete reports whether a delete confirmation is pending.
func (v *View) ConfirmingDelete() bool {
	return v.confirmDelete
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
