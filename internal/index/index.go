// Package index implements the durable per-source existence index on SQLite.
//
// One index file per source, fully isolated from every other source. The
// schema keeps the original two-table layout so existing index files remain
// readable: seen(doc_id) for persisted documents and pdf_seen(pdf_key, path)
// for stored attachments.
//
// The index assumes a single writer process per source; concurrent readers
// are safe (WAL mode, database/sql connection pooling).
package index

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// Index is the existence index for one source.
type Index struct {
	db *sql.DB
}

// Open opens (or creates) the index at path and applies the schema.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	return idx, nil
}

func (i *Index) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS seen (
		doc_id TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS pdf_seen (
		pdf_key TEXT PRIMARY KEY,
		path TEXT NOT NULL
	);
	`
	if _, err := i.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// HasDocument reports whether the document identifier is marked seen.
func (i *Index) HasDocument(docID string) (bool, error) {
	var one int
	err := i.db.QueryRow("SELECT 1 FROM seen WHERE doc_id = ?", docID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query seen: %w", err)
	}
	return true, nil
}

// MarkDocumentSeen records the document identifier. Idempotent.
func (i *Index) MarkDocumentSeen(docID string) error {
	if _, err := i.db.Exec("INSERT OR IGNORE INTO seen(doc_id) VALUES (?)", docID); err != nil {
		return fmt.Errorf("mark document seen: %w", err)
	}
	return nil
}

// HasAttachment reports whether the attachment key is recorded.
func (i *Index) HasAttachment(key string) (bool, error) {
	var one int
	err := i.db.QueryRow("SELECT 1 FROM pdf_seen WHERE pdf_key = ?", key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query attachment seen: %w", err)
	}
	return true, nil
}

// AttachmentPath returns the stored path recorded for the key, if any.
func (i *Index) AttachmentPath(key string) (string, bool, error) {
	var path string
	err := i.db.QueryRow("SELECT path FROM pdf_seen WHERE pdf_key = ?", key).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query attachment path: %w", err)
	}
	return path, true, nil
}

// MarkAttachmentSeen records key -> path. Insert-if-absent: the first
// recorded path wins and is never overwritten.
func (i *Index) MarkAttachmentSeen(key, path string) error {
	if _, err := i.db.Exec(
		"INSERT OR IGNORE INTO pdf_seen(pdf_key, path) VALUES (?, ?)", key, path,
	); err != nil {
		return fmt.Errorf("mark attachment seen: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (i *Index) Close() error {
	return i.db.Close()
}
