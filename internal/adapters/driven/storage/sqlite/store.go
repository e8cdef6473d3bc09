package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// indexFile is the database file name inside a document's directory.
const indexFile = "index.db"

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore stores one SQLite database per document under a root directory.
type IndexStore struct {
	root string
}

// NewIndexStore creates an index store rooted at root.
// If root is empty, defaults to ~/.docqa/indexes.
func NewIndexStore(root string) (*IndexStore, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		root = filepath.Join(home, ".docqa", "indexes")
	}

	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	return &IndexStore{root: root}, nil
}

// Root returns the directory holding all indexes.
func (s *IndexStore) Root() string {
	return s.root
}

// Location returns the directory holding the document's index.
func (s *IndexStore) Location(documentID string) string {
	return filepath.Join(s.root, documentID)
}

func (s *IndexStore) path(documentID string) string {
	return filepath.Join(s.Location(documentID), indexFile)
}

// Exists reports whether index.db exists for the document.
func (s *IndexStore) Exists(_ context.Context, documentID string) (bool, error) {
	_, err := os.Stat(s.path(documentID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking index %s: %w", documentID, err)
}

// Save writes the snapshot to a temporary database and renames it into place.
func (s *IndexStore) Save(ctx context.Context, documentID string, snap *domain.IndexSnapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrPersistence)
	}
	if len(snap.Texts) != len(snap.Vectors) {
		return fmt.Errorf("%w: %d texts but %d vectors", domain.ErrPersistence, len(snap.Texts), len(snap.Vectors))
	}

	dir := s.Location(documentID)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: creating %s: %w", domain.ErrPersistence, dir, err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf("%s.%s.tmp", indexFile, uuid.NewString()))
	if err := writeDatabase(ctx, tmp, snap); err != nil {
		os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("%w: writing %s: %w", domain.ErrPersistence, tmp, err)
	}

	if err := os.Rename(tmp, s.path(documentID)); err != nil {
		os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("%w: replacing index: %w", domain.ErrPersistence, err)
	}

	return nil
}

// Load reads the full snapshot for the document.
func (s *IndexStore) Load(ctx context.Context, documentID string) (*domain.IndexSnapshot, error) {
	db, err := s.open(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	manifest, err := readManifest(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrCorruptIndex, documentID, err)
	}

	texts, vectors, err := readEntries(ctx, db, manifest.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrCorruptIndex, documentID, err)
	}

	return &domain.IndexSnapshot{
		Manifest: *manifest,
		Texts:    texts,
		Vectors:  vectors,
	}, nil
}

// Manifest reads only the manifest row.
func (s *IndexStore) Manifest(ctx context.Context, documentID string) (*domain.IndexManifest, error) {
	db, err := s.open(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	manifest, err := readManifest(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrCorruptIndex, documentID, err)
	}
	return manifest, nil
}

// Remove deletes the document's index directory.
func (s *IndexStore) Remove(_ context.Context, documentID string) error {
	if err := os.RemoveAll(s.Location(documentID)); err != nil {
		return fmt.Errorf("%w: removing index %s: %w", domain.ErrPersistence, documentID, err)
	}
	return nil
}

// open opens an existing index read-only and checks its schema version.
func (s *IndexStore) open(ctx context.Context, documentID string) (*sql.DB, error) {
	path := s.path(documentID)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("index %s: %w", documentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrCorruptIndex, documentID, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", domain.ErrCorruptIndex, documentID, err)
	}

	var version int
	row := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: reading schema version: %w", domain.ErrCorruptIndex, documentID, err)
	}
	if version == 0 || version > migrations.Latest {
		db.Close()
		return nil, fmt.Errorf("%w: %s: unsupported schema version %d", domain.ErrCorruptIndex, documentID, version)
	}

	return db, nil
}

// writeDatabase creates a fresh database at path holding snap.
func writeDatabase(ctx context.Context, path string, snap *domain.IndexSnapshot) error {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(DELETE)&_pragma=synchronous(FULL)")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(ctx, db, migrations.FS); err != nil {
		db.Close()
		return fmt.Errorf("running migrations: %w", err)
	}

	if err := insertSnapshot(ctx, db, snap); err != nil {
		db.Close()
		return err
	}

	return db.Close()
}

func insertSnapshot(ctx context.Context, db *sql.DB, snap *domain.IndexSnapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	m := snap.Manifest
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO manifest (document_id, model, dimensions, entry_count, content_hash,
			chunk_size, chunk_overlap, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.DocumentID, m.Model, m.Dimensions, len(snap.Texts), m.ContentHash,
		m.ChunkSize, m.ChunkOverlap, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO entries (position, content, vector) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing entries: %w", err)
	}
	defer stmt.Close()

	for i := range snap.Texts {
		if _, err := stmt.ExecContext(ctx, i, snap.Texts[i], float32SliceToBytes(snap.Vectors[i])); err != nil {
			return fmt.Errorf("saving entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func readManifest(ctx context.Context, db *sql.DB) (*domain.IndexManifest, error) {
	var m domain.IndexManifest
	var createdAt string

	row := db.QueryRowContext(ctx, `
		SELECT document_id, model, dimensions, entry_count, content_hash,
			chunk_size, chunk_overlap, created_at
		FROM manifest LIMIT 1
	`)
	if err := row.Scan(&m.DocumentID, &m.Model, &m.Dimensions, &m.Count, &m.ContentHash,
		&m.ChunkSize, &m.ChunkOverlap, &createdAt); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	m.CreatedAt = t

	return &m, nil
}

func readEntries(ctx context.Context, db *sql.DB, dims int) ([]string, [][]float32, error) {
	rows, err := db.QueryContext(ctx, "SELECT position, content, vector FROM entries ORDER BY position")
	if err != nil {
		return nil, nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var texts []string
	var vectors [][]float32
	for rows.Next() {
		var position int
		var content string
		var blob []byte
		if err := rows.Scan(&position, &content, &blob); err != nil {
			return nil, nil, fmt.Errorf("scanning entry: %w", err)
		}
		if position != len(texts) {
			return nil, nil, fmt.Errorf("entry positions not contiguous at %d", position)
		}
		if len(blob) != dims*4 {
			return nil, nil, fmt.Errorf("entry %d: vector blob has %d bytes, expected %d", position, len(blob), dims*4)
		}
		texts = append(texts, content)
		vectors = append(vectors, bytesToFloat32Slice(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating entries: %w", err)
	}

	return texts, vectors, nil
}

// migrate runs all pending migrations.
func migrate(ctx context.Context, db *sql.DB, fsys embed.FS) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_index.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// float32SliceToBytes encodes vectors as little-endian float32.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice decodes little-endian float32 vectors.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
