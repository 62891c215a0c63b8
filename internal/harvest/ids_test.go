package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentIDDeterministic(t *testing.T) {
	t.Parallel()

	first := DocumentID("boe", "https://example.org/news/1", BasisRawURL)
	again := DocumentID("boe", "https://example.org/news/1", BasisRawURL)
	assert.Equal(t, first, again)
	assert.Len(t, first, 64)
}

func TestDocumentIDPartitionsBySource(t *testing.T) {
	t.Parallel()

	a := DocumentID("boe", "https://example.org/news/1", BasisRawURL)
	b := DocumentID("esrb", "https://example.org/news/1", BasisRawURL)
	assert.NotEqual(t, a, b)
}

func TestDocumentIDBasis(t *testing.T) {
	t.Parallel()

	decorated := "https://example.org/news/1?utm_source=mail"
	plain := "https://example.org/news/1"

	// Raw basis keeps decorated URLs distinct.
	assert.NotEqual(t,
		DocumentID("s", decorated, BasisRawURL),
		DocumentID("s", plain, BasisRawURL),
	)

	// Canonical basis converges them.
	assert.Equal(t,
		DocumentID("s", decorated, BasisCanonicalURL),
		DocumentID("s", plain, BasisCanonicalURL),
	)
}

func TestAttachmentKeyAlwaysCanonical(t *testing.T) {
	t.Parallel()

	a := AttachmentKey("https://x/report.pdf?ts=123")
	b := AttachmentKey("https://x/report.pdf?ts=456")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}
