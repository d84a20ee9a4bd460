package domain

import "strings"

// Metadata keys written by the source loaders and the chunker.
// Consumers must tolerate any of them being absent.
const (
	MetaSourceType     = "source_type"
	MetaSourceFile     = "source_file"
	MetaLineNumber     = "line_number"
	MetaCharLength     = "char_length"
	MetaOriginalLength = "original_length"
	MetaProcessingDate = "processing_date"
	MetaFormat         = "format"
	MetaTitle          = "title"
	MetaChunkIndex     = "chunk_index"
	MetaChunkTotal     = "chunk_total"
	MetaChunkPosition  = "chunk_position"
	MetaChunkSize      = "chunk_size"
	MetaTags           = "etiquetas"
	MetaTagsAlt        = "tags"
)

// Source types recorded under MetaSourceType.
const (
	SourceTypeStructured   = "structured"
	SourceTypeUnstructured = "unstructured"
	SourceTypePlaceholder  = "placeholder"
)

// Chunk positions recorded under MetaChunkPosition.
const (
	ChunkPositionBeginning = "beginning"
	ChunkPositionMiddle    = "middle"
	ChunkPositionEnd       = "end"
)

// PlaceholderContent is indexed when a build finds no documents,
// so a built index is never empty.
const PlaceholderContent = "Sin documentos disponibles en la base de conocimiento."

// Document is an immutable unit of retrievable content.
// Two documents are the same for deduplication when their Content is equal.
type Document struct {
	// ID is the unique identifier assigned at build time.
	ID string

	// Content is the text body. Never empty after normalisation.
	Content string

	// Metadata holds provenance and descriptive tags. Keys are not fixed.
	Metadata map[string]any
}

// ScoredDocument pairs a document with its distance from a query vector.
// Lower distance means more similar.
type ScoredDocument struct {
	Document Document
	Distance float32
}

// SourceType returns the document's source category, or "" if unknown.
func (d Document) SourceType() string {
	return d.MetaString(MetaSourceType)
}

// MetaString returns a metadata value as a string, or "" if missing
// or not a string.
func (d Document) MetaString(key string) string {
	if d.Metadata == nil {
		return ""
	}
	s, _ := d.Metadata[key].(string)
	return s
}

// Tags returns the document's free-form labels.
// Both "etiquetas" and "tags" are accepted, as lists or comma-separated strings.
func (d Document) Tags() []string {
	if d.Metadata == nil {
		return nil
	}
	var tags []string
	for _, key := range []string{MetaTags, MetaTagsAlt} {
		switch v := d.Metadata[key].(type) {
		case string:
			for _, part := range strings.Split(v, ",") {
				if t := strings.TrimSpace(part); t != "" {
					tags = append(tags, t)
				}
			}
		case []string:
			tags = append(tags, v...)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					tags = append(tags, strings.TrimSpace(s))
				}
			}
		}
	}
	return tags
}

// HasAnyTag reports whether the document carries any of the given tags,
// compared case-insensitively. An empty filter matches every document.
func (d Document) HasAnyTag(filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, tag := range d.Tags() {
		for _, want := range filter {
			if strings.EqualFold(strings.TrimSpace(tag), strings.TrimSpace(want)) {
				return true
			}
		}
	}
	return false
}

// CloneMetadata returns a shallow copy of a metadata map.
func CloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
