package sqlite

import (
	"context"
	"database/sql"
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

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/didact-labs/didact/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CorpusStore = (*Store)(nil)

// Store is a SQLite-backed corpus of documents and passages.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.didact/data/corpus.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".didact", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "corpus.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending up migrations in version order and records them.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
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
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}

// ==================== Documents ====================

// SaveDocument creates or updates a document. A missing name is derived
// from the citation. Updating keeps the creation time and deletion state.
func (s *Store) SaveDocument(ctx context.Context, doc domain.DocumentRef) error {
	if doc.Key == "" {
		return fmt.Errorf("%w: document key is required", domain.ErrInvalidInput)
	}
	if doc.Name == "" {
		name, err := domain.DocNameFromCitation(doc.Citation)
		if err != nil {
			return err
		}
		doc.Name = name
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (key, name, citation, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			citation = excluded.citation
	`, doc.Key, doc.Name, doc.Citation, s.now().UTC())
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// ListDocuments returns every document with its passage count, ordered by key.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.key, d.name, d.citation, d.created_at, d.deleted_at, COUNT(p.id)
		FROM documents d
		LEFT JOIN passages p ON p.document_key = d.key
		GROUP BY d.key
		ORDER BY d.key
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.DocumentInfo
	for rows.Next() {
		var info domain.DocumentInfo
		var deletedAt sql.NullTime
		if err := rows.Scan(&info.Key, &info.Name, &info.Citation, &info.CreatedAt, &deletedAt, &info.Passages); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if deletedAt.Valid {
			t := deletedAt.Time
			info.DeletedAt = &t
		}
		docs = append(docs, info)
	}
	return docs, rows.Err()
}

// SoftDeleteDocument marks a document deleted. Deleting twice keeps the first timestamp.
func (s *Store) SoftDeleteDocument(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET deleted_at = COALESCE(deleted_at, ?) WHERE key = ?
	`, s.now().UTC(), key)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return requireAffected(res)
}

// RestoreDocument clears a soft delete.
func (s *Store) RestoreDocument(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET deleted_at = NULL WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("restoring document: %w", err)
	}
	return requireAffected(res)
}

// DeletedDocumentKeys returns the keys of soft-deleted documents, sorted.
func (s *Store) DeletedDocumentKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM documents WHERE deleted_at IS NOT NULL ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying deleted documents: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// ==================== Passages ====================

// SavePassages stores passages in one transaction. A passage with an
// existing name is replaced in place and keeps its list position.
func (s *Store) SavePassages(ctx context.Context, passages []domain.Passage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (document_key, name, text, page_start, page_end, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			document_key = excluded.document_key,
			text = excluded.text,
			page_start = excluded.page_start,
			page_end = excluded.page_end,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		if _, err := stmt.ExecContext(ctx, p.Doc.Key, p.Name, p.Text,
			p.Pages.Start, p.Pages.End, float32SliceToBytes(p.Embedding)); err != nil {
			if isForeignKeyError(err) {
				return fmt.Errorf("passage %q: document %q: %w", p.Name, p.Doc.Key, domain.ErrNotFound)
			}
			return fmt.Errorf("saving passage %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CountPassages returns the number of stored passages.
func (s *Store) CountPassages(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return n, nil
}

// ListPassages returns up to limit passages in insertion order, with
// their document references and embeddings.
func (s *Store) ListPassages(ctx context.Context, offset, limit int) ([]domain.Passage, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must not be negative", domain.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name, p.text, p.page_start, p.page_end, p.embedding,
		       d.key, d.name, d.citation
		FROM passages p
		JOIN documents d ON d.key = p.document_key
		ORDER BY p.id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	passages := make([]domain.Passage, 0, limit)
	for rows.Next() {
		var p domain.Passage
		var embedding []byte
		if err := rows.Scan(&p.Name, &p.Text, &p.Pages.Start, &p.Pages.End, &embedding,
			&p.Doc.Key, &p.Doc.Name, &p.Doc.Citation); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		p.Embedding = bytesToFloat32Slice(embedding)
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// ==================== Helper Functions ====================

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func isForeignKeyError(err error) bool {
	var target interface{ Code() int }
	// SQLITE_CONSTRAINT_FOREIGNKEY
	if errors.As(err, &target) && target.Code() == 787 {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
