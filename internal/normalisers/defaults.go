package normalisers

import (
	"github.com/custodia-labs/kairoscope/internal/normalisers/html"
	"github.com/custodia-labs/kairoscope/internal/normalisers/markdown"
	"github.com/custodia-labs/kairoscope/internal/normalisers/plaintext"
)

// RegisterDefaults registers the built-in text, Markdown and HTML normalisers.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
}

// Default returns a registry with the built-in normalisers.
func Default() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
