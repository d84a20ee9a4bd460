package domain

import "time"

// BuildState is a stage of the index builder pipeline.
type BuildState string

// Pipeline states. FAILED is reachable from any other state.
const (
	BuildStateIdle           BuildState = "IDLE"
	BuildStateLoadingSources BuildState = "LOADING_SOURCES"
	BuildStateProcessing     BuildState = "PROCESSING"
	BuildStateEmbedding      BuildState = "EMBEDDING"
	BuildStateSaved          BuildState = "SAVED"
	BuildStateFailed         BuildState = "FAILED"
)

// String returns the string representation.
func (s BuildState) String() string {
	return string(s)
}

// IsTerminal returns true once a build has finished, successfully or not.
func (s BuildState) IsTerminal() bool {
	return s == BuildStateSaved || s == BuildStateFailed
}

// CanTransition reports whether the pipeline may move from s to next.
func (s BuildState) CanTransition(next BuildState) bool {
	if next == BuildStateFailed {
		return !s.IsTerminal()
	}
	switch s {
	case BuildStateIdle:
		return next == BuildStateLoadingSources
	case BuildStateLoadingSources:
		return next == BuildStateProcessing
	case BuildStateProcessing:
		return next == BuildStateEmbedding
	case BuildStateEmbedding:
		return next == BuildStateSaved
	default:
		return false
	}
}

// SkipReason explains why a source record was not indexed.
type SkipReason string

// Skip reasons reported by the source loaders and chunker.
const (
	SkipReasonEmptyText  SkipReason = "empty_text"
	SkipReasonParseError SkipReason = "parse_error"
	SkipReasonReadError  SkipReason = "read_error"
	SkipReasonTooShort   SkipReason = "too_short"
)

// SkipRecord reports one record or file that was skipped during loading.
// Skips are soft: they never abort a build.
type SkipRecord struct {
	// File is the source file name.
	File string

	// Line is the 1-based line number, or 0 for whole-file skips.
	Line int

	// Reason categorises the skip.
	Reason SkipReason

	// Detail carries the underlying error text, if any.
	Detail string
}

// BuildReport summarises one run of the index builder pipeline.
type BuildReport struct {
	// State is the final pipeline state.
	State BuildState

	// StructuredDocuments is the number of documents from structured records.
	StructuredDocuments int

	// UnstructuredFiles is the number of free text files read.
	UnstructuredFiles int

	// Chunks is the number of chunks kept from unstructured files.
	Chunks int

	// Indexed is the number of documents written to the index.
	Indexed int

	// Placeholder is true when no documents were found and the
	// placeholder document was indexed instead.
	Placeholder bool

	// Skipped lists records and files that were not indexed.
	Skipped []SkipRecord

	// Dimensions is the embedding dimensionality of the index.
	Dimensions int

	// Model is the embedding model used.
	Model string

	// Path is where the index was persisted.
	Path string

	// StartedAt and Duration time the run.
	StartedAt time.Time
	Duration  time.Duration

	// Err holds the failure cause when State is FAILED.
	Err error
}

// IndexStatus describes the currently loaded index.
type IndexStatus struct {
	// Loaded is true when an index is held in memory.
	Loaded bool

	// Documents is the number of indexed documents.
	Documents int

	// Dimensions is the embedding dimensionality.
	Dimensions int

	// Model is the embedding model the index was built with.
	Model string

	// BuiltAt is when the index was built.
	BuiltAt time.Time

	// Path is the persisted index directory.
	Path string

	// Stale is true when source files changed since the last build.
	Stale bool

	// Building is true while a rebuild is in progress.
	Building bool
}
