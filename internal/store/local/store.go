// Package local implements the filesystem-backed ingestion store.
//
// Layout, one directory per source under the root:
//
//	<root>/<source>/
//	  index.sqlite     existence index (documents seen, attachments seen)
//	  records.jsonl    append-only record log, one JSON document per line
//	  attachments/     stored binaries
package local

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/regwatch/docharvest/internal/harvest"
	"github.com/regwatch/docharvest/internal/index"
	"github.com/regwatch/docharvest/internal/metrics"
)

const (
	recordLogName  = "records.jsonl"
	indexFileName  = "index.sqlite"
	attachmentsDir = "attachments"
)

// Config captures the parameters for the local ingestion store.
type Config struct {
	// Root is the storage root directory. Created if missing.
	Root string `mapstructure:"root"`
	// AttachmentExt is the expected attachment extension, without the dot.
	// Defaults to "pdf".
	AttachmentExt string `mapstructure:"attachment_ext"`
}

// Store persists document records and attachments under a root directory.
// It implements harvest.Store and harvest.RecordSink.
//
// Indices are opened lazily, one per source, and shared for the lifetime of
// the Store. A failure to open a source's index affects only that source.
type Store struct {
	root string
	ext  string

	mu      sync.Mutex
	indexes map[string]*index.Index
}

// New creates the store, validating that the root directory is usable.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Root) == "" {
		return nil, fmt.Errorf("storage root is required")
	}

	info, err := os.Stat(cfg.Root)
	switch {
	case err != nil && os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.Root, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create storage root: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat storage root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage root is not a directory")
	}

	ext := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(cfg.AttachmentExt)), ".")
	if ext == "" {
		ext = "pdf"
	}

	return &Store{
		root:    cfg.Root,
		ext:     ext,
		indexes: make(map[string]*index.Index),
	}, nil
}

// Close closes every per-source index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for source, idx := range s.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close index for %s: %w", source, err)
		}
		delete(s.indexes, source)
	}
	return firstErr
}

// sourceDir ensures the per-source directory tree exists and returns its path.
func (s *Store) sourceDir(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", fmt.Errorf("source is required")
	}
	if strings.ContainsAny(source, `/\`) || source == "." || source == ".." {
		return "", fmt.Errorf("invalid source name %q", source)
	}

	dir := filepath.Join(s.root, source)
	if err := os.MkdirAll(filepath.Join(dir, attachmentsDir), 0o750); err != nil {
		return "", fmt.Errorf("create source directory: %w", err)
	}
	return dir, nil
}

// indexFor returns the existence index for the source, opening it on first
// use.
func (s *Store) indexFor(source string) (*index.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.indexes[source]; ok {
		return idx, nil
	}

	dir, err := s.sourceDir(source)
	if err != nil {
		return nil, err
	}
	idx, err := index.Open(filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, fmt.Errorf("open index for %s: %w", source, err)
	}
	s.indexes[source] = idx
	return idx, nil
}

// HasDocument reports whether the document was already persisted.
func (s *Store) HasDocument(source, docID string) (bool, error) {
	idx, err := s.indexFor(source)
	if err != nil {
		return false, err
	}
	return idx.HasDocument(docID)
}

// PutRecord appends the record to the source's log unless the document is
// already marked seen, in which case the call is silently absorbed.
//
// The document is marked seen before the log append: if the process dies
// between the two effects the record is dropped rather than duplicated, the
// safer failure for an append-only corpus.
func (s *Store) PutRecord(rec harvest.DocumentRecord) error {
	idx, err := s.indexFor(rec.Source)
	if err != nil {
		return err
	}

	seen, err := idx.HasDocument(rec.DocID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.DocID, err)
	}

	if err := idx.MarkDocumentSeen(rec.DocID); err != nil {
		return err
	}

	dir, err := s.sourceDir(rec.Source)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, recordLogName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open record log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append record %s: %w", rec.DocID, err)
	}
	return nil
}

// HasAttachment reports whether the attachment behind the URL is stored.
func (s *Store) HasAttachment(source, attachmentURL string) (bool, error) {
	idx, err := s.indexFor(source)
	if err != nil {
		return false, err
	}
	return idx.HasAttachment(harvest.AttachmentKey(attachmentURL))
}

// AttachmentPath returns the stored path recorded for the attachment URL.
func (s *Store) AttachmentPath(source, attachmentURL string) (string, bool, error) {
	idx, err := s.indexFor(source)
	if err != nil {
		return "", false, err
	}
	return idx.AttachmentPath(harvest.AttachmentKey(attachmentURL))
}

// StoreAttachment writes the attachment bytes exactly once per distinct
// attachment key and returns the stored path.
//
// If the key is already recorded and the recorded path still exists on disk,
// that path is returned and the content is ignored. Otherwise a
// human-readable filename is derived from the URL, the bytes are written only
// if the target path does not already exist (a name collision from an
// unrelated key accepts the pre-existing bytes), and key -> path is recorded.
func (s *Store) StoreAttachment(source, docID, attachmentURL string, content []byte, seq int) (string, error) {
	idx, err := s.indexFor(source)
	if err != nil {
		return "", err
	}

	key := harvest.AttachmentKey(attachmentURL)
	if prev, ok, err := idx.AttachmentPath(key); err != nil {
		return "", err
	} else if ok {
		if _, statErr := os.Stat(prev); statErr == nil {
			return prev, nil
		}
	}

	dir, err := s.sourceDir(source)
	if err != nil {
		return "", err
	}

	name := harvest.AttachmentFilename(attachmentURL, docID, s.ext, seq)
	path := filepath.Join(dir, attachmentsDir, name)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, content, 0o640); err != nil {
			return "", fmt.Errorf("write attachment %s: %w", name, err)
		}
		metrics.ObserveAttachmentStored(source)
	} else if err != nil {
		return "", fmt.Errorf("stat attachment %s: %w", name, err)
	}

	if err := idx.MarkAttachmentSeen(key, path); err != nil {
		return "", err
	}
	return path, nil
}

// PutText is a passthrough: record text is carried inline, so the location
// of a text body is the text itself.
func (s *Store) PutText(_, _, text string) (string, error) {
	return text, nil
}
