package harvest

// DocumentRecord is the unit of ingestion. One record is persisted at most
// once per (Source, DocID) pair for the lifetime of the store; records are
// never mutated or deleted after persistence.
//
// The JSON field names match the persisted newline-delimited log schema.
type DocumentRecord struct {
	DocID    string `json:"doc_id"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	// Date is an ISO calendar date (YYYY-MM-DD), nil when unknown.
	Date     *string        `json:"date"`
	Language string         `json:"language"`
	DocType  string         `json:"doc_type"`
	Text     string         `json:"text"`
	// AttachmentURLs lists the attachment locations the document references.
	AttachmentURLs []string `json:"pdf_urls"`
	// AttachmentPaths lists the local paths actually stored for those
	// attachments. It may be shorter than AttachmentURLs when a download
	// failed or the binary was already stored.
	AttachmentPaths []string       `json:"pdf_paths"`
	Meta            map[string]any `json:"meta"`
}

// IDBasis selects which form of a document URL feeds DocumentID.
//
// The basis is fixed per source for the source's lifetime. Switching it
// later silently re-ingests every previously-seen document under new
// identifiers; that is an operational hazard, not something the store can
// detect or repair.
type IDBasis int

const (
	// BasisRawURL hashes the URL exactly as the source published it.
	BasisRawURL IDBasis = iota
	// BasisCanonicalURL hashes the canonicalized URL.
	BasisCanonicalURL
)

// String returns the config spelling of the basis.
func (b IDBasis) String() string {
	if b == BasisCanonicalURL {
		return "canonical"
	}
	return "raw"
}
