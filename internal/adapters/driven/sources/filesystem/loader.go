package filesystem

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
	"github.com/custodia-labs/kairoscope/internal/logger"
	"github.com/custodia-labs/kairoscope/internal/normalisers"
)

// Ensure Loader implements the interface.
var _ driven.SourceLoader = (*Loader)(nil)

// Subdirectories read under the knowledge base root, and the structured
// file extension. Unstructured extensions come from the normalisers.
const (
	StructuredDir   = "structured"
	UnstructuredDir = "unstructured"
	StructuredExt   = ".jsonl"
)

var defaultNormalisers = normalisers.Default()

// maxLineSize bounds a single structured record.
const maxLineSize = 4 * 1024 * 1024

// textField is the required field of a structured record.
const textField = "text"

// Loader reads structured and unstructured sources from a directory.
type Loader struct {
	root        string
	normalisers *normalisers.Registry
	now         func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithNormalisers replaces the built-in unstructured normalisers.
func WithNormalisers(r *normalisers.Registry) Option {
	return func(l *Loader) {
		l.normalisers = r
	}
}

// New creates a loader for the knowledge base at root.
func New(root string, opts ...Option) *Loader {
	l := &Loader{root: root, normalisers: defaultNormalisers, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root returns the knowledge base directory.
func (l *Loader) Root() string {
	return l.root
}

// Load reads every source file. A missing root or category directory
// yields no documents for it. Unreadable files and bad records are
// reported as skips.
func (l *Loader) Load(ctx context.Context) (*driven.SourceSet, error) {
	info, err := os.Stat(l.root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("knowledge base %s does not exist", l.root)
		return &driven.SourceSet{}, nil
	case err != nil:
		return nil, fmt.Errorf("stat knowledge base: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("%w: knowledge base %s is not a directory", domain.ErrConfiguration, l.root)
	}

	processedAt := l.now().Format(time.RFC3339)
	set := &driven.SourceSet{}

	structured, err := listFiles(filepath.Join(l.root, StructuredDir), isStructured)
	if err != nil {
		return nil, err
	}
	for _, path := range structured {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docs, skips := l.loadStructured(path, processedAt)
		set.Structured = append(set.Structured, docs...)
		set.Skipped = append(set.Skipped, skips...)
	}

	unstructured, err := listFiles(filepath.Join(l.root, UnstructuredDir), l.normalisers.Handles)
	if err != nil {
		return nil, err
	}
	for _, path := range unstructured {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, skip := l.loadUnstructured(path, processedAt)
		if skip != nil {
			set.Skipped = append(set.Skipped, *skip)
			continue
		}
		set.Unstructured = append(set.Unstructured, *doc)
	}

	logger.Debug("loaded %d structured records, %d text files, %d skipped",
		len(set.Structured), len(set.Unstructured), len(set.Skipped))
	return set, nil
}

// loadStructured reads one JSONL file. Blank lines are ignored silently.
func (l *Loader) loadStructured(path, processedAt string) ([]domain.Document, []domain.SkipRecord) {
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("reading %s: %v", name, err)
		return nil, []domain.SkipRecord{{File: name, Reason: domain.SkipReasonReadError, Detail: err.Error()}}
	}
	defer f.Close()

	var docs []domain.Document
	var skips []domain.SkipRecord

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		doc, err := parseRecord(line)
		if err != nil {
			reason := domain.SkipReasonParseError
			if errors.Is(err, errEmptyText) {
				reason = domain.SkipReasonEmptyText
			}
			logger.Debug("skipping %s:%d: %v", name, lineNumber, err)
			skips = append(skips, domain.SkipRecord{File: name, Line: lineNumber, Reason: reason, Detail: err.Error()})
			continue
		}

		doc.Metadata[domain.MetaSourceType] = domain.SourceTypeStructured
		doc.Metadata[domain.MetaSourceFile] = name
		doc.Metadata[domain.MetaLineNumber] = lineNumber
		doc.Metadata[domain.MetaCharLength] = utf8.RuneCountInString(doc.Content)
		doc.Metadata[domain.MetaProcessingDate] = processedAt
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("reading %s after line %d: %v", name, lineNumber, err)
		skips = append(skips, domain.SkipRecord{File: name, Line: lineNumber + 1, Reason: domain.SkipReasonReadError, Detail: err.Error()})
	}
	return docs, skips
}

var errEmptyText = errors.New("missing or blank text field")

// parseRecord decodes one structured record. Every field other than
// text becomes metadata.
func parseRecord(line string) (domain.Document, error) {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %w", domain.ErrSourceParse, err)
	}
	if record == nil {
		return domain.Document{}, fmt.Errorf("%w: record is not an object", domain.ErrSourceParse)
	}

	text, ok := record[textField].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return domain.Document{}, errEmptyText
	}
	delete(record, textField)

	return domain.Document{
		ID:       uuid.New().String(),
		Content:  strings.TrimSpace(text),
		Metadata: record,
	}, nil
}

// loadUnstructured reads one text file as a single document, converted
// to plain text by the normaliser for its extension.
func (l *Loader) loadUnstructured(path, processedAt string) (*domain.Document, *domain.SkipRecord) {
	name := filepath.Base(path)
	normaliser, ok := l.normalisers.For(name)
	if !ok {
		return nil, &domain.SkipRecord{File: name, Reason: domain.SkipReasonParseError, Detail: "no normaliser for " + filepath.Ext(name)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("reading %s: %v", name, err)
		return nil, &domain.SkipRecord{File: name, Reason: domain.SkipReasonReadError, Detail: err.Error()}
	}
	if !utf8.Valid(data) {
		return nil, &domain.SkipRecord{
			File: name, Reason: domain.SkipReasonParseError,
			Detail: fmt.Errorf("%w: not valid UTF-8", domain.ErrSourceParse).Error(),
		}
	}

	result, err := normaliser.Normalise(name, data)
	if err != nil {
		logger.Debug("normalising %s: %v", name, err)
		return nil, &domain.SkipRecord{
			File: name, Reason: domain.SkipReasonParseError,
			Detail: fmt.Errorf("%w: %w", domain.ErrSourceParse, err).Error(),
		}
	}
	content := strings.TrimSpace(result.Content)
	if content == "" {
		return nil, &domain.SkipRecord{File: name, Reason: domain.SkipReasonEmptyText}
	}

	metadata := map[string]any{
		domain.MetaSourceType:     domain.SourceTypeUnstructured,
		domain.MetaSourceFile:     name,
		domain.MetaFormat:         result.Format,
		domain.MetaOriginalLength: utf8.RuneCountInString(content),
		domain.MetaProcessingDate: processedAt,
	}
	if result.Title != "" {
		metadata[domain.MetaTitle] = result.Title
	}
	return &domain.Document{
		ID:       uuid.New().String(),
		Content:  content,
		Metadata: metadata,
	}, nil
}

// listFiles returns the regular, non-hidden files in dir accepted by
// match, sorted by name. A missing directory has no files.
func listFiles(dir string, match func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("no %s directory at %s", filepath.Base(dir), dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) || !match(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// isHidden reports whether any element of path starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}

func isStructured(name string) bool {
	return strings.EqualFold(filepath.Ext(name), StructuredExt)
}

// IsSourceFile reports whether path names a file a loader with the
// built-in normalisers would read.
func IsSourceFile(path string) bool {
	if isHidden(filepath.Base(path)) {
		return false
	}
	switch filepath.Base(filepath.Dir(path)) {
	case StructuredDir:
		return isStructured(path)
	case UnstructuredDir:
		return defaultNormalisers.Handles(path)
	default:
		return false
	}
}
