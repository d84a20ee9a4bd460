package driven

import (
	"context"
	"time"
)

// IndexManifest describes a persisted index.
type IndexManifest struct {
	// Model is the embedding model that produced the vectors.
	Model string

	// Dimensions is the vector size shared by every entry.
	Dimensions int

	// Documents is the number of entries.
	Documents int

	// BuiltAt is when the index was built.
	BuiltAt time.Time
}

// IndexStore persists an index to a directory and loads it back.
//
// Save must be replace-on-success: the new index is written in isolation and
// only becomes visible at path once fully written. A failed Save leaves any
// index already at path intact.
type IndexStore interface {
	// Save writes the manifest and entries to the directory at path.
	Save(ctx context.Context, path string, manifest IndexManifest, entries []IndexEntry) error

	// Load reads an index from the directory at path.
	// Returns domain.ErrNotFound if nothing is persisted there and
	// domain.ErrIndexCorrupt if it cannot be decoded or is inconsistent.
	Load(ctx context.Context, path string) (IndexManifest, []IndexEntry, error)
}
