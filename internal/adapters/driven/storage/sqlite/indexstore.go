package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/custodia-labs/kairoscope/internal/adapters/driven/storage/codec"
	"github.com/custodia-labs/kairoscope/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

// IndexFileName is the database file inside an index directory.
const IndexFileName = "index.db"

// indexFormatVersion is bumped when the persisted layout changes incompatibly.
const indexFormatVersion = 1

// Manifest keys.
const (
	manifestFormat     = "format_version"
	manifestModel      = "model"
	manifestDimensions = "dimensions"
	manifestDocuments  = "documents"
	manifestBuiltAt    = "built_at"
)

// IndexStore persists an index directory holding a single SQLite file.
// Saves are written to a sibling temporary directory and renamed into place,
// so readers never observe a partially written index.
type IndexStore struct{}

var _ driven.IndexStore = (*IndexStore)(nil)

// NewIndexStore creates an index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{}
}

// Save writes the index to a fresh directory and swaps it in at path.
func (s *IndexStore) Save(ctx context.Context, path string, manifest driven.IndexManifest, entries []driven.IndexEntry) error {
	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, 0700); err != nil {
		return fmt.Errorf("creating index parent directory: %w", err)
	}

	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary index directory: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(tmp)
		}
	}()

	if err := writeIndex(ctx, filepath.Join(tmp, IndexFileName), manifest, entries); err != nil {
		return err
	}

	if err := swapDirectory(tmp, path); err != nil {
		return err
	}
	committed = true
	logger.Debug("index saved: %d entries to %s", len(entries), path)
	return nil
}

func writeIndex(ctx context.Context, dbPath string, manifest driven.IndexManifest, entries []driven.IndexEntry) (err error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("opening index database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing index database: %w", cerr)
		}
	}()

	if err := migrate(ctx, db, migrations.IndexFS); err != nil {
		return fmt.Errorf("creating index schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning index transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	meta := map[string]string{
		manifestFormat:     strconv.Itoa(indexFormatVersion),
		manifestModel:      manifest.Model,
		manifestDimensions: strconv.Itoa(manifest.Dimensions),
		manifestDocuments:  strconv.Itoa(len(entries)),
		manifestBuiltAt:    manifest.BuiltAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO manifest (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("writing manifest: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO entries (position, id, content, metadata, vector) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if len(e.Vector) != manifest.Dimensions {
			return fmt.Errorf("%w: entry %d has %d dimensions, manifest says %d",
				domain.ErrIndexCorrupt, i, len(e.Vector), manifest.Dimensions)
		}
		metaJSON, err := json.Marshal(e.Document.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for entry %d: %w", i, err)
		}
		if e.Document.Metadata == nil {
			metaJSON = []byte("{}")
		}
		if _, err := stmt.ExecContext(ctx, i, e.Document.ID, e.Document.Content,
			string(metaJSON), codec.EncodeVector(e.Vector)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	return nil
}

// swapDirectory replaces dst with src. An existing dst is moved aside first
// and restored if the final rename fails.
func swapDirectory(src, dst string) error {
	_, err := os.Stat(dst)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("moving index into place: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("checking existing index: %w", err)
	}

	backup := fmt.Sprintf("%s.bak-%d", dst, time.Now().UnixNano())
	if err := os.Rename(dst, backup); err != nil {
		return fmt.Errorf("moving previous index aside: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		if rerr := os.Rename(backup, dst); rerr != nil {
			logger.Error("restoring previous index from %s failed: %v", backup, rerr)
		}
		return fmt.Errorf("moving index into place: %w", err)
	}
	if err := os.RemoveAll(backup); err != nil {
		logger.Warn("removing previous index %s: %v", backup, err)
	}
	return nil
}

// Load reads an index directory.
func (s *IndexStore) Load(ctx context.Context, path string) (driven.IndexManifest, []driven.IndexEntry, error) {
	var manifest driven.IndexManifest

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return manifest, nil, fmt.Errorf("%w: no index at %s", domain.ErrNotFound, path)
	}
	if err != nil {
		return manifest, nil, fmt.Errorf("checking index directory: %w", err)
	}
	if !info.IsDir() {
		return manifest, nil, fmt.Errorf("%w: %s is not a directory", domain.ErrIndexCorrupt, path)
	}

	dbPath := filepath.Join(path, IndexFileName)
	if _, err := os.Stat(dbPath); err != nil {
		return manifest, nil, fmt.Errorf("%w: missing %s: %v", domain.ErrIndexCorrupt, IndexFileName, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return manifest, nil, fmt.Errorf("%w: opening index: %v", domain.ErrIndexCorrupt, err)
	}
	defer db.Close()

	manifest, err = readManifest(ctx, db)
	if err != nil {
		return manifest, nil, err
	}

	entries, err := readEntries(ctx, db, manifest.Dimensions)
	if err != nil {
		return manifest, nil, err
	}
	if len(entries) != manifest.Documents {
		return manifest, nil, fmt.Errorf("%w: manifest lists %d documents, found %d",
			domain.ErrIndexCorrupt, manifest.Documents, len(entries))
	}

	logger.Debug("index loaded: %d entries (%s, %d dims) from %s",
		len(entries), manifest.Model, manifest.Dimensions, path)
	return manifest, entries, nil
}

func readManifest(ctx context.Context, db *sql.DB) (driven.IndexManifest, error) {
	var manifest driven.IndexManifest

	rows, err := db.QueryContext(ctx, "SELECT key, value FROM manifest")
	if err != nil {
		return manifest, fmt.Errorf("%w: reading manifest: %v", domain.ErrIndexCorrupt, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return manifest, fmt.Errorf("%w: scanning manifest: %v", domain.ErrIndexCorrupt, err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return manifest, fmt.Errorf("%w: reading manifest: %v", domain.ErrIndexCorrupt, err)
	}

	if meta[manifestFormat] != strconv.Itoa(indexFormatVersion) {
		return manifest, fmt.Errorf("%w: unsupported index format %q", domain.ErrIndexCorrupt, meta[manifestFormat])
	}

	manifest.Model = meta[manifestModel]
	if manifest.Dimensions, err = strconv.Atoi(meta[manifestDimensions]); err != nil || manifest.Dimensions <= 0 {
		return manifest, fmt.Errorf("%w: invalid dimensions %q", domain.ErrIndexCorrupt, meta[manifestDimensions])
	}
	if manifest.Documents, err = strconv.Atoi(meta[manifestDocuments]); err != nil {
		return manifest, fmt.Errorf("%w: invalid document count %q", domain.ErrIndexCorrupt, meta[manifestDocuments])
	}
	if ts := meta[manifestBuiltAt]; ts != "" {
		if manifest.BuiltAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return manifest, fmt.Errorf("%w: invalid build time %q", domain.ErrIndexCorrupt, ts)
		}
	}
	return manifest, nil
}

func readEntries(ctx context.Context, db *sql.DB, dims int) ([]driven.IndexEntry, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, content, metadata, vector FROM entries ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("%w: reading entries: %v", domain.ErrIndexCorrupt, err)
	}
	defer rows.Close()

	var entries []driven.IndexEntry
	for rows.Next() {
		var e driven.IndexEntry
		var metaJSON string
		var blob []byte
		if err := rows.Scan(&e.Document.ID, &e.Document.Content, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning entry: %v", domain.ErrIndexCorrupt, err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &e.Document.Metadata); err != nil {
			return nil, fmt.Errorf("%w: entry metadata: %v", domain.ErrIndexCorrupt, err)
		}
		vec, err := codec.DecodeVector(blob)
		if err != nil || len(vec) != dims {
			return nil, fmt.Errorf("%w: entry %q has %d-byte vector, want %d dimensions",
				domain.ErrIndexCorrupt, e.Document.ID, len(blob), dims)
		}
		e.Vector = vec
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading entries: %v", domain.ErrIndexCorrupt, err)
	}
	return entries, nil
}
