// Package chunker provides a recursive, separator-aware text chunking processor.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 400

// DefaultChunkOverlap is the default number of overlapping characters.
// Zero keeps near-duplicate fragments out of diversity-based retrieval.
const DefaultChunkOverlap = 0

// DefaultMinLength is the trimmed length below which a chunk is dropped.
const DefaultMinLength = 25

// DefaultSeparators lists split points from coarsest to finest.
// The empty separator splits between characters and always applies.
var DefaultSeparators = []string{"\n\n\n", "\n\n", "\n", ". ", "? ", "! ", "; ", ", ", " ", ""}

// Processor splits document content into chunks of roughly chunkSize
// characters, cutting at the coarsest separator that keeps chunks in size.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	minLength  int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMinLength sets the trimmed length below which chunks are dropped.
func WithMinLength(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minLength = n
		}
	}
}

// WithSeparators replaces the separator priority list.
func WithSeparators(seps []string) Option {
	return func(p *Processor) {
		if len(seps) > 0 {
			p.separators = seps
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		minLength:  DefaultMinLength,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Each chunk inherits the document metadata plus its index, the sibling
// total before filtering, a position tag and its size.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Document) ([]domain.Document, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	pieces := p.Split(doc.Content)
	total := len(pieces)
	chunks := make([]domain.Document, 0, total)

	for i, piece := range pieces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if runeLen(strings.TrimSpace(piece)) < p.minLength {
			continue
		}

		meta := domain.CloneMetadata(doc.Metadata)
		meta[domain.MetaChunkIndex] = i
		meta[domain.MetaChunkTotal] = total
		meta[domain.MetaChunkPosition] = position(i, total)
		meta[domain.MetaChunkSize] = runeLen(piece)

		chunks = append(chunks, domain.Document{
			ID:       uuid.New().String(),
			Content:  piece,
			Metadata: meta,
		})
	}

	return chunks, nil
}

func position(i, total int) string {
	switch {
	case i == 0:
		return domain.ChunkPositionBeginning
	case i == total-1:
		return domain.ChunkPositionEnd
	default:
		return domain.ChunkPositionMiddle
	}
}

// Split cuts text into trimmed, non-empty pieces without applying the
// minimum length filter.
func (p *Processor) Split(text string) []string {
	return p.split(text, p.separators)
}

func (p *Processor) split(text string, separators []string) []string {
	// Pick the first separator present in the text; the rest are finer.
	separator := separators[len(separators)-1]
	var finer []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var out []string
	var small []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < p.chunkSize {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			out = append(out, p.merge(small)...)
			small = nil
		}
		if len(finer) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, p.split(piece, finer)...)
		}
	}
	if len(small) > 0 {
		out = append(out, p.merge(small)...)
	}
	return out
}

// merge packs consecutive pieces into chunks no longer than chunkSize,
// carrying up to overlap characters into the next chunk.
func (p *Processor) merge(pieces []string) []string {
	var chunks []string
	var current []string
	total := 0

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > p.chunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for len(current) > 0 && (total > p.overlap || (total+n > p.chunkSize && total > 0)) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepingSeparator splits text on sep, attaching each separator to the
// start of the piece that follows it. An empty sep splits into characters.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	pieces := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = sep + part
		}
		if part != "" {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
