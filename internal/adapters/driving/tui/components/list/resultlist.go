// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// DocumentList displays retrieved documents in a navigable list.
type DocumentList struct {
	docs     []domain.Document
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewDocumentList creates a new document list component.
func NewDocumentList(s *styles.Styles) *DocumentList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &DocumentList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the document list.
func (r *DocumentList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *DocumentList) Update(msg tea.Msg) (*DocumentList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the document list.
func (r *DocumentList) View() string {
	if len(r.docs) == 0 {
		return r.styles.Muted.Render("No documents")
	}

	lines := make([]string, 0, len(r.docs)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Documents (%d)", len(r.docs))), "")

	// Each document takes two lines.
	visibleCount := max((r.height-4)/2, 1)

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := min(start+visibleCount, len(r.docs))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderDocument(i, &r.docs[i]))
	}

	return strings.Join(lines, "\n")
}

// renderDocument formats one document: a content preview, then its
// source and tags.
func (r *DocumentList) renderDocument(index int, doc *domain.Document) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	preview := Truncate(strings.Join(strings.Fields(doc.Content), " "), max(r.width-6, 20))
	var first string
	if index == r.selected {
		first = r.styles.Selected.Render(indicator + preview)
	} else {
		first = r.styles.Normal.Render(indicator + preview)
	}

	source := doc.MetaString(domain.MetaSourceFile)
	if source == "" {
		source = doc.SourceType()
	}
	second := "    " + r.styles.Muted.Render(source)
	if tags := doc.Tags(); len(tags) > 0 {
		second += "  " + r.styles.Tag.Render("#"+strings.Join(tags, " #"))
	}

	return first + "\n" + second
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// SetDocuments replaces the list contents and resets the selection.
func (r *DocumentList) SetDocuments(docs []domain.Document) {
	r.docs = docs
	r.selected = 0
}

// Documents returns the current documents.
func (r *DocumentList) Documents() []domain.Document {
	return r.docs
}

// Selected returns the index of the selected document.
func (r *DocumentList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *DocumentList) SetSelected(index int) {
	if index >= 0 && index < len(r.docs) {
		r.selected = index
	}
}

// SelectedDocument returns the currently selected document, or nil if none.
func (r *DocumentList) SelectedDocument() *domain.Document {
	if len(r.docs) == 0 || r.selected < 0 || r.selected >= len(r.docs) {
		return nil
	}
	return &r.docs[r.selected]
}

// MoveUp moves selection up.
func (r *DocumentList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *DocumentList) MoveDown() {
	if r.selected < len(r.docs)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *DocumentList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Width returns the current width.
func (r *DocumentList) Width() int {
	return r.width
}

// Height returns the current height.
func (r *DocumentList) Height() int {
	return r.height
}

// Count returns the number of documents.
func (r *DocumentList) Count() int {
	return len(r.docs)
}

// IsEmpty returns whether the list is empty.
func (r *DocumentList) IsEmpty() bool {
	return len(r.docs) == 0
}
