// Package listing harvests documents from HTML index pages.
//
// A listing source has an index page whose entries are located with CSS
// selectors, each pointing at a detail page carrying the document body and
// any PDF attachments.
package listing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/regwatch/docharvest/internal/harvest"
)

// Selectors locates listing entries and detail-page content.
type Selectors struct {
	// Item matches one listing entry on the index page.
	Item string
	// Link and Title are resolved relative to the matched item.
	Link  string
	Title string
	Date  string
	// Body matches the main content block on the detail page. Empty leaves
	// records without body text.
	Body string
}

// Config describes one listing-backed source.
type Config struct {
	Name      string
	IndexURL  string
	Language  string
	DocType   string
	Basis     harvest.IDBasis
	RPS       float64
	UserAgent string
	Selectors Selectors
}

// Harvester scrapes an index page and its detail pages.
type Harvester struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// entry is one row scraped off the index page.
type entry struct {
	link  string
	title string
	date  *string
}

// New constructs a listing harvester. A non-positive RPS disables
// throttling.
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
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With(zap.String("source", cfg.Name)),
	}
}

// Name returns the source name.
func (h *Harvester) Name() string { return h.cfg.Name }

// IDBasis returns the identifier basis for this source.
func (h *Harvester) IDBasis() harvest.IDBasis { return h.cfg.Basis }

// FetchRange scrapes the index page, keeps entries dated inside [start, end),
// and enriches unseen ones from their detail pages. A detail-page failure
// degrades that record to its listing data instead of failing the harvest.
func (h *Harvester) FetchRange(ctx context.Context, start, end time.Time, store harvest.Store) ([]harvest.DocumentRecord, error) {
	entries, err := h.scrapeIndex(ctx)
	if err != nil {
		return nil, err
	}

	var records []harvest.DocumentRecord
	for _, e := range entries {
		if !inWindow(e.date, start, end) {
			continue
		}
		docID := harvest.DocumentID(h.cfg.Name, e.link, h.cfg.Basis)
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
			URL:      e.link,
			Title:    e.title,
			Date:     e.date,
			Language: h.cfg.Language,
			DocType:  h.cfg.DocType,
		}
		if err := h.enrichFromDetail(ctx, store, &rec); err != nil {
			h.logger.Warn("detail page failed",
				zap.String("url", e.link),
				zap.Error(err),
			)
		}
		records = append(records, rec)
	}
	return records, nil
}

// scrapeIndex pulls the index page and extracts one entry per item match.
func (h *Harvester) scrapeIndex(ctx context.Context) ([]entry, error) {
	c := colly.NewCollector()
	c.SetClient(h.client)
	if h.cfg.UserAgent != "" {
		c.UserAgent = h.cfg.UserAgent
	}

	var entries []entry
	c.OnHTML(h.cfg.Selectors.Item, func(e *colly.HTMLElement) {
		link := e.ChildAttr(h.cfg.Selectors.Link, "href")
		if link == "" {
			return
		}
		ent := entry{
			link:  e.Request.AbsoluteURL(link),
			title: strings.TrimSpace(e.ChildText(h.cfg.Selectors.Title)),
		}
		if h.cfg.Selectors.Date != "" {
			ent.date = harvest.NormalizeDate(e.ChildText(h.cfg.Selectors.Date))
		}
		entries = append(entries, ent)
	})

	var scrapeErr error
	c.OnError(func(_ *colly.Response, err error) {
		scrapeErr = err
	})

	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := c.Visit(h.cfg.IndexURL); err != nil {
		return nil, fmt.Errorf("visit index: %w", err)
	}
	c.Wait()
	if scrapeErr != nil {
		return nil, fmt.Errorf("scrape index: %w", scrapeErr)
	}
	return entries, nil
}

// enrichFromDetail fills in the body text and attachments from the entry's
// detail page.
func (h *Harvester) enrichFromDetail(ctx context.Context, store harvest.Store, rec *harvest.DocumentRecord) error {
	doc, err := h.fetchDocument(ctx, rec.URL)
	if err != nil {
		return err
	}

	if h.cfg.Selectors.Body != "" {
		rec.Text = strings.TrimSpace(doc.Find(h.cfg.Selectors.Body).Text())
	}

	seq := 0
	for _, pdfURL := range h.pdfLinks(doc, rec.URL) {
		rec.AttachmentURLs = append(rec.AttachmentURLs, pdfURL)

		if path, ok, err := store.AttachmentPath(h.cfg.Name, pdfURL); err == nil && ok {
			rec.AttachmentPaths = append(rec.AttachmentPaths, path)
			seq++
			continue
		}

		data, err := h.download(ctx, pdfURL)
		if err != nil {
			h.logger.Warn("attachment download failed",
				zap.String("url", pdfURL),
				zap.Error(err),
			)
			continue
		}
		path, err := store.StoreAttachment(h.cfg.Name, rec.DocID, pdfURL, data, seq)
		if err != nil {
			h.logger.Warn("attachment store failed",
				zap.String("url", pdfURL),
				zap.Error(err),
			)
			continue
		}
		rec.AttachmentPaths = append(rec.AttachmentPaths, path)
		seq++
	}
	return nil
}

// pdfLinks collects absolute PDF hrefs from the detail document, first
// occurrence wins.
func (h *Harvester) pdfLinks(doc *goquery.Document, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := baseURL.ResolveReference(ref)
		if !strings.HasSuffix(strings.ToLower(abs.Path), ".pdf") {
			return
		}
		full := abs.String()
		if _, dup := seen[full]; dup {
			return
		}
		seen[full] = struct{}{}
		links = append(links, full)
	})
	return links
}

func (h *Harvester) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := h.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}
	return doc, nil
}

func (h *Harvester) download(ctx context.Context, fileURL string) ([]byte, error) {
	resp, err := h.get(ctx, fileURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (h *Harvester) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if h.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", h.cfg.UserAgent)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	return resp, nil
}

func inWindow(date *string, start, end time.Time) bool {
	if date == nil {
		return true
	}
	t, err := time.Parse("2006-01-02", *date)
	if err != nil {
		return true
	}
	return !t.Before(start) && t.Before(end)
}
