package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/views/deck"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/views/decks"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/views/retrieve"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	menuView     *menu.View
	retrieveView *retrieve.View
	decksView    *decks.View
	deckView     *deck.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()

	return &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		menuView:     menu.NewView(s),
		retrieveView: retrieve.NewView(s, nil, ports.Retriever, ports.Defaults),
		decksView:    decks.NewView(s, ports.Decks, ports.Owner),
		deckView:     deck.NewView(s, ports.Decks, ports.Owner),
		currentView:  messages.ViewMenu,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.retrieveView.WithContext(ctx)
	a.decksView.WithContext(ctx)
	a.deckView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("kairoscope"),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		switch a.currentView {
		case messages.ViewMenu:
			a.menuView, cmd = a.menuView.Update(msg)
		case messages.ViewRetrieve:
			a.retrieveView, cmd = a.retrieveView.Update(msg)
		case messages.ViewDecks:
			a.decksView, cmd = a.decksView.Update(msg)
		case messages.ViewDeck:
			a.deckView, cmd = a.deckView.Update(msg)
		case messages.ViewHelp:
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
		}
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewRetrieve:
			return a, a.retrieveView.Reset()
		case messages.ViewDecks:
			return a, a.decksView.Reload()
		case messages.ViewMenu, messages.ViewDeck, messages.ViewHelp:
		}
		return a, nil

	case messages.RetrievalCompleted, messages.RebuildCompleted, messages.StatusLoaded:
		a.retrieveView, cmd = a.retrieveView.Update(msg)
		a.err = a.retrieveView.Err()
		return a, cmd

	case messages.DecksLoaded, messages.DeckDeleted:
		a.decksView, cmd = a.decksView.Update(msg)
		return a, cmd

	case messages.DeckSelected:
		a.currentView = messages.ViewDeck
		return a, a.deckView.Open(msg.ID)

	case messages.DeckLoaded:
		a.deckView, cmd = a.deckView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		switch a.currentView {
		case messages.ViewRetrieve:
			a.retrieveView, cmd = a.retrieveView.Update(msg)
		case messages.ViewDecks:
			a.decksView, cmd = a.decksView.Update(msg)
		case messages.ViewDeck:
			a.deckView, cmd = a.deckView.Update(msg)
		case messages.ViewMenu, messages.ViewHelp:
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Cursor blinks and other component messages go to the input.
	if a.currentView == messages.ViewRetrieve {
		a.retrieveView, cmd = a.retrieveView.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewRetrieve:
		return a.retrieveView.View()
	case messages.ViewDecks:
		return a.decksView.View()
	case messages.ViewDeck:
		return a.deckView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Navigation:
  esc         Back
  ctrl+c      Quit

Retrieve:
  (type)      Describe a creative block
  enter       Retrieve inspiration
  tab         Cycle strategy (mixed, similarity, divergence, random)
  ctrl+r      Rebuild the index

Results:
  j/k, ↑/↓    Navigate results
  enter       Show full document
  n           New query

Decks:
  enter       Open deck
  d           Delete deck
  r           Reload

` + a.styles.Help.Render("[esc] back to menu")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.retrieveView.SetDimensions(width, height)
	a.decksView.SetDimensions(width, height)
	a.deckView.SetDimensions(width, height)
}
