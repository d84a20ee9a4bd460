package driven

import (
	"context"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// SourceSet is the raw corpus read from the knowledge base.
type SourceSet struct {
	// Structured holds one document per valid structured record. Never chunked.
	Structured []domain.Document

	// Unstructured holds one document per free text file, before chunking.
	Unstructured []domain.Document

	// Skipped lists records and files that could not be used.
	Skipped []domain.SkipRecord
}

// IsEmpty reports whether both categories are empty.
func (s *SourceSet) IsEmpty() bool {
	return s == nil || (len(s.Structured) == 0 && len(s.Unstructured) == 0)
}

// SourceLoader reads the knowledge base. It never writes.
// Malformed records are reported in SourceSet.Skipped rather than returned as errors.
type SourceLoader interface {
	// Load reads every structured and unstructured source file.
	Load(ctx context.Context) (*SourceSet, error)

	// Root returns the knowledge base directory being read.
	Root() string
}

// SourceWatcher reports changes to knowledge base files.
type SourceWatcher interface {
	// Watch calls onChange for every relevant file change until ctx is done.
	Watch(ctx context.Context, onChange func(path string)) error

	// Close stops watching and releases resources.
	Close() error
}

// NormaliseResult is the plain text extracted from one unstructured file.
type NormaliseResult struct {
	Content string
	Title   string // Empty when the format carries no title.
	Format  string
}

// Normaliser extracts plain text from an unstructured source file.
type Normaliser interface {
	// Extensions lists the lower-case file extensions handled, dot included.
	Extensions() []string

	// Normalise converts the file contents. name is the file's base name.
	Normalise(name string, data []byte) (*NormaliseResult, error)
}
