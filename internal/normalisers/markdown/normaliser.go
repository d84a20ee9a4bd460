// Package markdown provides the Normaliser for Markdown notes. Formatting
// is stripped so only the prose reaches the embedder.
package markdown

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Format is recorded in document metadata.
const Format = "markdown"

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Normalise implements driven.Normaliser. The title is the first level
// one heading, if any.
func (n *Normaliser) Normalise(_ string, data []byte) (*driven.NormaliseResult, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = frontMatter.ReplaceAllString(content, "")
	return &driven.NormaliseResult{
		Content: stripMarkdown(content),
		Title:   extractTitle(content),
		Format:  Format,
	}, nil
}

var (
	frontMatter  = regexp.MustCompile(`(?s)\A---\n.*?\n---\n`)
	codeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquote   = regexp.MustCompile(`(?m)^>\s*`)
	rules        = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numbered     = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*|_)(\S[^*_]*?)(\*\*|__|\*|_)`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

// stripMarkdown removes common markdown formatting. Code blocks are
// dropped; inline code keeps its text.
func stripMarkdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = rules.ReplaceAllString(content, "")
	content = blockquote.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numbered.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "$2")
	content = multiNewline.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
