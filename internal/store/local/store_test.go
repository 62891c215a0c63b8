// Package local_test tests the filesystem-backed ingestion store.
package local_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regwatch/docharvest/internal/harvest"
	"github.com/regwatch/docharvest/internal/store/local"
)

func newStore(t *testing.T) (*local.Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := local.New(local.Config{Root: root})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store, root
}

func record(source, docID string) harvest.DocumentRecord {
	date := "2024-01-03"
	return harvest.DocumentRecord{
		DocID:    docID,
		Source:   source,
		URL:      "https://example.org/news/" + docID,
		Title:    "Press release " + docID,
		Date:     &date,
		Language: "en",
		DocType:  "press_release",
		Text:     "body text",
		Meta:     map[string]any{"country": "GB"},
	}
}

func readLogLines(t *testing.T, root, source string) []string {
	t.Helper()
	f, err := os.Open(filepath.Join(root, source, "records.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestNew(t *testing.T) {
	t.Run("CreatesMissingRoot", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "data")
		store, err := local.New(local.Config{Root: root})
		require.NoError(t, err)
		defer store.Close()
		assert.DirExists(t, root)
	})

	t.Run("MissingRoot", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("RootIsAFile", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "notadir")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o640))
		_, err := local.New(local.Config{Root: file})
		assert.Error(t, err)
	})
}

func TestPutRecordIdempotent(t *testing.T) {
	store, root := newStore(t)
	rec := record("boe", "doc-1")

	require.NoError(t, store.PutRecord(rec))

	seen, err := store.HasDocument("boe", "doc-1")
	require.NoError(t, err)
	assert.True(t, seen)

	// Second append with the same (source, doc_id) is silently absorbed.
	require.NoError(t, store.PutRecord(rec))

	lines := readLogLines(t, root, "boe")
	require.Len(t, lines, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "doc-1", got["doc_id"])
	assert.Equal(t, "boe", got["source"])
	assert.Equal(t, "2024-01-03", got["date"])
}

func TestPutRecordNilDate(t *testing.T) {
	store, root := newStore(t)
	rec := record("boe", "doc-undated")
	rec.Date = nil

	require.NoError(t, store.PutRecord(rec))

	lines := readLogLines(t, root, "boe")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"date":null`)
}

func TestPutRecordSourcesIsolated(t *testing.T) {
	store, root := newStore(t)

	require.NoError(t, store.PutRecord(record("boe", "doc-1")))
	require.NoError(t, store.PutRecord(record("esrb", "doc-1")))

	assert.Len(t, readLogLines(t, root, "boe"), 1)
	assert.Len(t, readLogLines(t, root, "esrb"), 1)
}

func TestStoreAttachmentWriteOnce(t *testing.T) {
	store, _ := newStore(t)

	first, err := store.StoreAttachment("boe", "doc-1", "https://x/report.pdf", []byte("first payload"), 0)
	require.NoError(t, err)

	// Same canonical URL, different bytes: same path, bytes untouched.
	second, err := store.StoreAttachment("boe", "doc-1", "https://x/report.pdf", []byte("second payload"), 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "first payload", string(data))
}

func TestStoreAttachmentTrackingVariantsConverge(t *testing.T) {
	store, _ := newStore(t)

	first, err := store.StoreAttachment("boe", "doc-1", "https://x/report.pdf?ts=123", []byte("payload"), 0)
	require.NoError(t, err)
	second, err := store.StoreAttachment("boe", "doc-1", "https://x/report.pdf?ts=456", []byte("other"), 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "report.pdf", filepath.Base(first))
}

func TestStoreAttachmentSeenBeforeDownload(t *testing.T) {
	store, _ := newStore(t)

	path, err := store.StoreAttachment("boe", "doc-1", "https://x/report.pdf", []byte("payload"), 0)
	require.NoError(t, err)

	seen, err := store.HasAttachment("boe", "https://x/report.pdf?ts=999")
	require.NoError(t, err)
	assert.True(t, seen)

	stored, ok, err := store.AttachmentPath("boe", "https://x/report.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path, stored)
}

func TestStoreAttachmentNameCollisionTolerated(t *testing.T) {
	store, _ := newStore(t)

	// Two distinct documents on different hosts share a last segment.
	first, err := store.StoreAttachment("boe", "doc-1", "https://a.example/report.pdf", []byte("from a"), 0)
	require.NoError(t, err)
	second, err := store.StoreAttachment("boe", "doc-2", "https://b.example/report.pdf", []byte("from b"), 0)
	require.NoError(t, err)

	// The colliding name resolves to the pre-existing file; both keys are
	// recorded against it.
	assert.Equal(t, first, second)
	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "from a", string(data))
}

func TestStoreAttachmentFallbackName(t *testing.T) {
	store, _ := newStore(t)

	path, err := store.StoreAttachment("boe", "doc-9", "https://x/files/download?id=1", []byte("payload"), 0)
	require.NoError(t, err)
	assert.Equal(t, "doc-9.pdf", filepath.Base(path))

	other, err := store.StoreAttachment("boe", "doc-9", "https://x/files/download?id=2", []byte("payload"), 1)
	require.NoError(t, err)
	assert.Equal(t, "doc-9_1.pdf", filepath.Base(other))
}

func TestStoreAttachmentRewriteAfterFileLoss(t *testing.T) {
	store, _ := newStore(t)

	path, err := store.StoreAttachment("boe", "doc-1", "https://x/report.pdf", []byte("payload"), 0)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	// The recorded path no longer exists, so the bytes are written again.
	again, err := store.StoreAttachment("boe", "doc-1", "https://x/report.pdf", []byte("payload"), 0)
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.FileExists(t, again)
}

func TestPutText(t *testing.T) {
	store, _ := newStore(t)

	got, err := store.PutText("boe", "doc-1", "plain body")
	require.NoError(t, err)
	assert.Equal(t, "plain body", got)
}

func TestInvalidSourceRejected(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.HasDocument("../escape", "doc-1")
	assert.Error(t, err)

	err = store.PutRecord(record("", "doc-1"))
	assert.Error(t, err)
}

func TestLayout(t *testing.T) {
	store, root := newStore(t)

	require.NoError(t, store.PutRecord(record("boe", "doc-1")))
	_, err := store.StoreAttachment("boe", "doc-1", "https://x/report.pdf", []byte("p"), 0)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "boe", "records.jsonl"))
	assert.FileExists(t, filepath.Join(root, "boe", "index.sqlite"))
	assert.FileExists(t, filepath.Join(root, "boe", "attachments", "report.pdf"))
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.True(t, strings.Contains(strings.Join(names, ","), "boe"))
}
