// Package retrieve provides the query and results view for the TUI.
package retrieve

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driving"
)

// StrategyMixed runs all three strategies and merges their results.
const StrategyMixed = "mixed"

// strategies is the tab cycle order.
var strategies = []string{
	StrategyMixed,
	domain.StrategySimilarity.String(),
	domain.StrategyDivergence.String(),
	domain.StrategyRandom.String(),
}

// View represents the retrieval view with input, results list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.DocumentList
	statusbar *status.Bar

	retriever driving.Retriever
	defaults  domain.RetrievalSettings
	ctx       context.Context

	strategy   int
	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = typing a query, false = navigating results
	detail     bool
}

// NewView creates a new retrieval view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	retriever driving.Retriever,
	defaults domain.RetrievalSettings,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQueryInput(s),
		list:       list.NewDocumentList(s),
		statusbar:  status.NewBar(s, km),
		retriever:  retriever,
		defaults:   defaults,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init focuses the input and loads the index status.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.loadStatus())
}

// Update handles messages for the retrieval view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.RetrievalCompleted:
		v.handleRetrievalCompleted(msg)
		return v, nil

	case messages.RebuildCompleted:
		v.handleRebuildCompleted(msg)
		return v, v.loadStatus()

	case messages.StatusLoaded:
		v.statusbar.SetIndexStatus(msg.Status)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var inputCmd tea.Cmd
	v.input, inputCmd = v.input.Update(msg)
	return v, inputCmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.detail {
		if msg.Type == tea.KeyEsc || msg.Type == tea.KeyEnter {
			v.detail = false
		}
		return v, nil
	}

	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case tea.KeyTab:
		v.CycleStrategy()
		return v, nil
	case tea.KeyCtrlR:
		v.statusbar.SetState(status.StateRebuilding)
		v.statusbar.SetMessage("")
		return v, v.rebuild()
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			query := strings.TrimSpace(v.input.Value())
			if query == "" {
				return v, nil
			}
			v.statusbar.SetState(status.StateRetrieving)
			v.statusbar.SetMessage("")
			v.focusInput = false
			v.input.Blur()
			return v, v.retrieve(query, v.Strategy())
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEnter:
		if v.list.SelectedDocument() != nil {
			v.detail = true
		}
		return v, nil
	case tea.KeyUp:
		v.list.MoveUp()
		return v, nil
	case tea.KeyDown:
		v.list.MoveDown()
		return v, nil
	}

	switch msg.String() {
	case "k":
		v.list.MoveUp()
	case "j":
		v.list.MoveDown()
	case "n":
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}

	return v, nil
}

// retrieve runs the chosen strategy off the update loop.
func (v *View) retrieve(query, strategy string) tea.Cmd {
	retriever := v.retriever
	ctx := v.ctx
	q := v.defaults.Query(query)
	return func() tea.Msg {
		if retriever == nil {
			return messages.ErrorOccurred{Err: ErrNoRetriever}
		}

		var (
			docs []domain.Document
			err  error
		)
		if strategy == StrategyMixed {
			docs, err = retriever.MixedRetrieve(ctx, q)
		} else {
			docs, err = retriever.Retrieve(ctx, domain.StrategyKind(strategy), q)
		}
		return messages.RetrievalCompleted{Query: query, Strategy: strategy, Documents: docs, Err: err}
	}
}

func (v *View) rebuild() tea.Cmd {
	retriever := v.retriever
	ctx := v.ctx
	return func() tea.Msg {
		if retriever == nil {
			return messages.ErrorOccurred{Err: ErrNoRetriever}
		}
		report, err := retriever.Rebuild(ctx)
		return messages.RebuildCompleted{Report: report, Err: err}
	}
}

func (v *View) loadStatus() tea.Cmd {
	retriever := v.retriever
	ctx := v.ctx
	if retriever == nil {
		return nil
	}
	return func() tea.Msg {
		return messages.StatusLoaded{Status: retriever.Status(ctx)}
	}
}

func (v *View) handleRetrievalCompleted(msg messages.RetrievalCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		v.focusInput = true
		v.input.Focus()
		return
	}

	v.err = nil
	v.list.SetDocuments(msg.Documents)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetMessage("")
	v.statusbar.SetResultCount(len(msg.Documents))
	v.focusInput = false
	v.input.Blur()
}

func (v *View) handleRebuildCompleted(msg messages.RebuildCompleted) {
	if msg.Err != nil {
		v.setError(fmt.Errorf("rebuild failed: %w", msg.Err))
		return
	}

	v.err = nil
	v.statusbar.SetState(status.StateReady)
	if msg.Report != nil {
		v.statusbar.SetMessage(fmt.Sprintf("Index rebuilt: %d documents", msg.Report.Indexed))
	} else {
		v.statusbar.SetMessage("Index rebuilt")
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the retrieval view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	sections = append(sections, v.styles.Title.Render("Kairoscope"), "")
	sections = append(sections, v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.detail {
		sections = append(sections, v.renderDetail())
	} else {
		sections = append(sections, v.list.View())
	}

	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderDetail shows the selected document's full content and metadata.
func (v *View) renderDetail() string {
	doc := v.list.SelectedDocument()
	if doc == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(v.styles.Subtitle.Render(doc.ID))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Width(max(v.width-4, 20)).Render(doc.Content))
	b.WriteString("\n\n")

	for _, k := range slices.Sorted(maps.Keys(doc.Metadata)) {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%s: %v", k, doc.Metadata[k])))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[Esc] Back to results"))

	return v.styles.Border.Padding(0, 1).Render(b.String())
}

// CycleStrategy advances to the next retrieval strategy.
func (v *View) CycleStrategy() {
	v.strategy = (v.strategy + 1) % len(strategies)
	v.input.SetLabel(strategies[v.strategy])
}

// Strategy returns the selected strategy name.
func (v *View) Strategy() string {
	return strategies[v.strategy]
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10) // header, input and status
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current query text.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the query text.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Documents returns the current results.
func (v *View) Documents() []domain.Document {
	return v.list.Documents()
}

// SelectedDocument returns the highlighted result.
func (v *View) SelectedDocument() *domain.Document {
	return v.list.SelectedDocument()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// DetailVisible returns whether the document preview is open.
func (v *View) DetailVisible() bool {
	return v.detail
}

// Reset returns the view to input mode with no results.
func (v *View) Reset() tea.Cmd {
	v.focusInput = true
	v.detail = false
	v.input.SetValue("")
	v.list.SetDocuments(nil)
	v.err = nil
	v.statusbar.Clear()
	return tea.Batch(v.input.Focus(), v.loadStatus())
}
