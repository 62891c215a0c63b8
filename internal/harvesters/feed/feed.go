// Package feed harvests documents from RSS and Atom feeds.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kennygrant/sanitize"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/regwatch/docharvest/internal/harvest"
)

// Config describes one feed-backed source.
type Config struct {
	Name      string
	FeedURL   string
	Language  string
	DocType   string
	Basis     harvest.IDBasis
	RPS       float64
	UserAgent string
}

// Harvester pulls a feed, filters items to the harvest window, and stores
// any PDF enclosures it finds.
type Harvester struct {
	cfg     Config
	client  *http.Client
	parser  *gofeed.Parser
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New constructs a feed harvester. A non-positive RPS disables throttling.
func New(cfg Config, client *http.Client, logger *zap.Logger) *Harvester {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &Harvester{
		cfg:     cfg,
		client:  client,
		parser:  gofeed.NewParser(),
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With(zap.String("source", cfg.Name)),
	}
}

// Name returns the source name.
func (h *Harvester) Name() string { return h.cfg.Name }

// IDBasis returns the identifier basis for this source.
func (h *Harvester) IDBasis() harvest.IDBasis { return h.cfg.Basis }

// FetchRange pulls the feed and returns the records published inside
// [start, end) that the store has not seen yet. Items without a parseable
// publication date are kept. Enclosure download failures degrade the record
// rather than failing the harvest.
func (h *Harvester) FetchRange(ctx context.Context, start, end time.Time, store harvest.Store) ([]harvest.DocumentRecord, error) {
	feed, err := h.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	var records []harvest.DocumentRecord
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		published := itemDate(item)
		if published != nil && (published.Before(start) || !published.Before(end)) {
			continue
		}

		docID := harvest.DocumentID(h.cfg.Name, item.Link, h.cfg.Basis)
		seen, err := store.HasDocument(h.cfg.Name, docID)
		if err != nil {
			return nil, fmt.Errorf("check document %s: %w", docID, err)
		}
		if seen {
			continue
		}

		rec := harvest.DocumentRecord{
			DocID:    docID,
			Source:   h.cfg.Name,
			URL:      item.Link,
			Title:    strings.TrimSpace(item.Title),
			Date:     dateString(published),
			Language: h.cfg.Language,
			DocType:  h.cfg.DocType,
			Text:     itemText(item),
		}
		h.collectEnclosures(ctx, store, item, &rec)
		records = append(records, rec)
	}
	return records, nil
}

func (h *Harvester) fetchFeed(ctx context.Context) (*gofeed.Feed, error) {
	body, err := h.get(ctx, h.cfg.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer body.Close()

	feed, err := h.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// collectEnclosures downloads each unseen PDF enclosure through the
// write-once store and records its URL and stored path on the record.
func (h *Harvester) collectEnclosures(ctx context.Context, store harvest.Store, item *gofeed.Item, rec *harvest.DocumentRecord) {
	seq := 0
	for _, enc := range item.Enclosures {
		if enc == nil || !isPDF(enc.URL, enc.Type) {
			continue
		}
		rec.AttachmentURLs = append(rec.AttachmentURLs, enc.URL)

		if path, ok, err := store.AttachmentPath(h.cfg.Name, enc.URL); err == nil && ok {
			rec.AttachmentPaths = append(rec.AttachmentPaths, path)
			seq++
			continue
		}

		data, err := h.download(ctx, enc.URL)
		if err != nil {
			h.logger.Warn("enclosure download failed",
				zap.String("url", enc.URL),
				zap.Error(err),
			)
			continue
		}
		path, err := store.StoreAttachment(h.cfg.Name, rec.DocID, enc.URL, data, seq)
		if err != nil {
			h.logger.Warn("enclosure store failed",
				zap.String("url", enc.URL),
				zap.Error(err),
			)
			continue
		}
		rec.AttachmentPaths = append(rec.AttachmentPaths, path)
		seq++
	}
}

func (h *Harvester) download(ctx context.Context, url string) ([]byte, error) {
	body, err := h.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (h *Harvester) get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if h.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", h.cfg.UserAgent)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

func itemDate(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := harvest.ISODate(*t)
	return &s
}

// itemText extracts a plain-text body, preferring full content over the
// summary.
func itemText(item *gofeed.Item) string {
	raw := item.Content
	if raw == "" {
		raw = item.Description
	}
	return strings.TrimSpace(sanitize.HTML(raw))
}

func isPDF(url, mimeType string) bool {
	if strings.EqualFold(mimeType, "application/pdf") {
		return true
	}
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.HasSuffix(strings.ToLower(trimmed), ".pdf")
}
