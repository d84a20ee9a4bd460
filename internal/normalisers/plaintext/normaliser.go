// Package plaintext provides the Normaliser for plain text files.
package plaintext

import (
	"strings"

	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Format is recorded in document metadata.
const Format = "text"

// Normaliser passes text through unchanged apart from trimming and
// line ending normalisation.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".txt", ".text"}
}

// Normalise implements driven.Normaliser.
func (n *Normaliser) Normalise(_ string, data []byte) (*driven.NormaliseResult, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	return &driven.NormaliseResult{
		Content: strings.TrimSpace(content),
		Format:  Format,
	}, nil
}
