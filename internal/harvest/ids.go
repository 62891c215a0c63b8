package harvest

import (
	"crypto/sha256"
	"encoding/hex"
)

// DocumentID derives the stable identifier for a logical document inside a
// source's namespace. The basis decides whether the raw or the canonical URL
// feeds the hash; it must stay fixed for the source's lifetime so identifiers
// remain stable across runs.
func DocumentID(source, rawURL string, basis IDBasis) string {
	u := rawURL
	if basis == BasisCanonicalURL {
		u = CanonicalizeURL(rawURL)
	}
	sum := sha256.Sum256([]byte(source + "|" + u))
	return hex.EncodeToString(sum[:])
}

// AttachmentKey derives the identifier of a binary attachment. It always
// hashes the canonical URL: attachments are frequently reached through
// differently-decorated download links pointing at the same bytes.
func AttachmentKey(rawURL string) string {
	sum := sha256.Sum256([]byte(CanonicalizeURL(rawURL)))
	return hex.EncodeToString(sum[:])
}
