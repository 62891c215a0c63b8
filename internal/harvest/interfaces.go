package harvest

import (
	"context"
	"time"
)

// Store is the surface a Harvester persists through. Attachment methods take
// the attachment URL as published; key derivation happens inside the store.
//
// Harvesters should call HasAttachment before downloading bytes to avoid
// wasted transfer. The store's write-once guarantee holds regardless.
type Store interface {
	// HasDocument reports whether a document was already persisted.
	HasDocument(source, docID string) (bool, error)
	// HasAttachment reports whether the attachment behind the URL is stored.
	HasAttachment(source, attachmentURL string) (bool, error)
	// AttachmentPath returns the stored path for the attachment, if any.
	AttachmentPath(source, attachmentURL string) (string, bool, error)
	// StoreAttachment writes attachment bytes at most once per distinct
	// attachment key and returns the stored path. Repeated calls with the
	// same canonical URL return the same path without touching the bytes.
	// seq disambiguates fallback filenames when a document carries several
	// attachments with no usable URL segment.
	StoreAttachment(source, docID, attachmentURL string, content []byte, seq int) (string, error)
	// PutText is a trivial passthrough for plain-text bodies: the text is
	// carried inline in the record, so the location returned is the text
	// itself.
	PutText(source, docID, text string) (string, error)
}

// RecordSink accepts fully-resolved document records for durable persistence.
type RecordSink interface {
	// PutRecord appends the record to the source's log, unless the document
	// is already marked seen, in which case it is silently absorbed.
	PutRecord(rec DocumentRecord) error
}

// Harvester produces candidate documents for a time window from one source.
// Implementations live outside the core; the scheduler only relies on this
// contract.
type Harvester interface {
	// Name is the short stable source name partitioning indices and storage.
	Name() string
	// IDBasis reports which URL form this source derives document IDs from.
	IDBasis() IDBasis
	// FetchRange returns the fully-resolved records for documents published
	// inside [start, end). The store handle is for early seen-checks and
	// attachment persistence.
	FetchRange(ctx context.Context, start, end time.Time, store Store) ([]DocumentRecord, error)
}

// ExistenceIndex answers "have we already persisted this" across process
// restarts. One index instance per source; keys are supplied by callers.
type ExistenceIndex interface {
	HasDocument(docID string) (bool, error)
	// MarkDocumentSeen is idempotent.
	MarkDocumentSeen(docID string) error
	HasAttachment(key string) (bool, error)
	AttachmentPath(key string) (string, bool, error)
	// MarkAttachmentSeen has insert-if-absent semantics: a second call with
	// a different path for the same key leaves the first path in place.
	MarkAttachmentSeen(key, path string) error
	Close() error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
