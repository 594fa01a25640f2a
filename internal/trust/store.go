// Package trust implements an optional local allowlist of skill-archive
// hashes that have already been vetted, letting a scan short-circuit to
// "known good" without re-running every analyzer. It stores only a
// hash/note/timestamp tuple per entry — no findings, no manifest text —
// so it does not reintroduce the persistent finding storage this project
// otherwise avoids.
package trust

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one vetted skill-archive hash.
type Entry struct {
	Hash    string
	Note    string
	AddedAt time.Time
}

// Store is a SQLite-backed allowlist of vetted skill hashes.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the trust database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open trust store: %w", err)
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trusted_hashes (
		hash       TEXT PRIMARY KEY,
		note       TEXT,
		added_at   DATETIME NOT NULL
	);`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize trust store schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add records hash as vetted, with an optional human-readable note. Adding
// an already-trusted hash updates its note and timestamp.
func (s *Store) Add(hash, note string) error {
	_, err := s.db.Exec(
		`INSERT INTO trusted_hashes (hash, note, added_at) VALUES (?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET note = excluded.note, added_at = excluded.added_at`,
		hash, note, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record trusted hash: %w", err)
	}
	return nil
}

// IsTrusted reports whether hash has already been vetted.
func (s *Store) IsTrusted(hash string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM trusted_hashes WHERE hash = ?`, hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query trust store: %w", err)
	}
	return count > 0, nil
}

// Get returns the Entry for hash, if trusted.
func (s *Store) Get(hash string) (Entry, bool, error) {
	var e Entry
	var addedAt time.Time
	err := s.db.QueryRow(`SELECT hash, note, added_at FROM trusted_hashes WHERE hash = ?`, hash).
		Scan(&e.Hash, &e.Note, &addedAt)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to look up trusted hash: %w", err)
	}
	e.AddedAt = addedAt
	return e, true, nil
}

// Remove revokes trust for hash. It is not an error to remove a hash that
// was never trusted.
func (s *Store) Remove(hash string) error {
	_, err := s.db.Exec(`DELETE FROM trusted_hashes WHERE hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("failed to remove trusted hash: %w", err)
	}
	return nil
}

// List returns every trusted entry, ordered by most-recently added first.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT hash, note, added_at FROM trusted_hashes ORDER BY added_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list trusted hashes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Hash, &e.Note, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trusted hash row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// HashReader computes the sha256 hex digest of an archive's byte stream,
// the same digest Add/IsTrusted expect as hash.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash archive: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashDir computes a deterministic sha256 digest over every regular file
// under root, folding in each file's root-relative path so a rename
// changes the hash even if no byte of content did. A skill directory is
// the un-extracted equivalent of an "archive" for HashReader's purposes;
// this is what a pre-install scan actually has on disk to hash, since
// ClawScan is handed an already-materialized directory rather than an
// archive file.
func HashDir(root string) (string, error) {
	var relPaths []string
	files := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		relPaths = append(relPaths, rel)
		files[rel] = path
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk %s for hashing: %w", root, err)
	}
	sort.Strings(relPaths)

	h := sha256.New()
	for _, rel := range relPaths {
		f, err := os.Open(files[rel])
		if err != nil {
			return "", fmt.Errorf("failed to hash %s: %w", rel, err)
		}
		fmt.Fprintf(h, "%s\x00", rel)
		_, copyErr := io.Copy(h, f)
		_ = f.Close()
		if copyErr != nil {
			return "", fmt.Errorf("failed to hash %s: %w", rel, copyErr)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
