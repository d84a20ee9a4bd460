package normalisers

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// Registry maps file extensions to normalisers.
type Registry struct {
	byExt map[string]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]driven.Normaliser)}
}

// Register adds n for each of its extensions. A later registration for
// the same extension replaces the earlier one.
func (r *Registry) Register(n driven.Normaliser) {
	for _, ext := range n.Extensions() {
		r.byExt[strings.ToLower(ext)] = n
	}
}

// For returns the normaliser for path's extension.
func (r *Registry) For(path string) (driven.Normaliser, bool) {
	n, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return n, ok
}

// Handles reports whether some normaliser accepts path.
func (r *Registry) Handles(path string) bool {
	_, ok := r.For(path)
	return ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
