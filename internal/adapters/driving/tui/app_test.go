package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

func newTestPorts() *Ports {
	created := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	deck := domain.Deck{
		ID:         "d1",
		Owner:      "ana",
		Name:       "Ecos Oblicuos",
		Discipline: "danza",
		Color:      "#E4572E",
		Cards:      []domain.Card{{ID: "c1", Text: "Repite el error con intención"}},
		CreatedAt:  created,
	}
	return &Ports{
		Retriever: &MockRetriever{
			MixedRetrieveFunc: func(_ context.Context, q domain.RetrievalQuery) ([]domain.Document, error) {
				return []domain.Document{{ID: "1", Content: "Respuesta a " + q.Text}}, nil
			},
		},
		Decks: &MockDeckService{
			ListFunc: func(context.Context, string) ([]domain.Deck, error) {
				return []domain.Deck{deck}, nil
			},
			GetFunc: func(_ context.Context, id string) (*domain.Deck, error) {
				if id != deck.ID {
					return nil, domain.ErrNotFound
				}
				d := deck
				return &d, nil
			},
		},
		Defaults: domain.RetrievalSettings{KSimilarity: 10, KDivergence: 15, KRandom: 5},
		Owner:    "ana",
	}
}

func newReadyApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(newTestPorts())
	require.NoError(t, err)
	app.SetDimensions(120, 40)
	return app
}

// drain runs a command and feeds its messages back into the app.
func drain(app *App, cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		if _, ok := msg.(tea.BatchMsg); ok {
			return
		}
		_, cmd = app.Update(msg)
	}
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(newTestPorts())

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{Decks: &MockDeckService{}})

	assert.ErrorIs(t, err, ErrMissingRetriever)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app, _ := NewApp(newTestPorts())

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx))
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_Init(t *testing.T) {
	app, _ := NewApp(newTestPorts())

	assert.NotNil(t, app.Init())
}

func TestApp_Update_WindowSize(t *testing.T) {
	app, _ := NewApp(newTestPorts())

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "Kairoscope")
}

func TestApp_CtrlCQuits(t *testing.T) {
	app := newReadyApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_QuitMessage(t *testing.T) {
	app := newReadyApp(t)

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_RetrieveFlow(t *testing.T) {
	app := newReadyApp(t)

	// Menu: first item is retrieve.
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Equal(t, messages.ViewRetrieve, app.CurrentView())

	for _, r := range "bloqueo" {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(app, cmd)

	assert.NoError(t, app.Err())
	assert.Contains(t, app.View(), "Respuesta a bloqueo")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_RetrievalError(t *testing.T) {
	app := newReadyApp(t)
	app.Update(messages.ViewChanged{View: messages.ViewRetrieve})

	app.Update(messages.RetrievalCompleted{Err: domain.ErrIndexNotLoaded})

	assert.ErrorIs(t, app.Err(), domain.ErrIndexNotLoaded)
}

func TestApp_DecksFlow(t *testing.T) {
	app := newReadyApp(t)

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewDecks})
	assert.Equal(t, messages.ViewDecks, app.CurrentView())
	drain(app, cmd)
	assert.Contains(t, app.View(), "Ecos Oblicuos")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(app, cmd)
	assert.Equal(t, messages.ViewDeck, app.CurrentView())
	assert.Contains(t, app.View(), "Repite el error con intención")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Equal(t, messages.ViewDecks, app.CurrentView())
}

func TestApp_HelpView(t *testing.T) {
	app := newReadyApp(t)

	app.Update(messages.ViewChanged{View: messages.ViewHelp})
	view := app.View()
	assert.Contains(t, view, "Help")
	assert.Contains(t, view, "ctrl+r")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newReadyApp(t)
	app.Update(messages.ViewChanged{View: messages.ViewDecks})

	app.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, app.Err(), "boom")
	assert.Contains(t, app.View(), "Error: boom")
}

func TestApp_NoDeckService(t *testing.T) {
	ports := newTestPorts()
	ports.Decks = nil
	app, err := NewApp(ports)
	require.NoError(t, err)
	app.SetDimensions(120, 40)

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewDecks})
	drain(app, cmd)

	assert.Contains(t, app.View(), "deck service not available")
}
