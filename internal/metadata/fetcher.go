// Package metadata looks up human-readable titles and descriptions for article pages.
package metadata

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; readlater/1.0)"
)

// Metadata is what a page says about itself.
type Metadata struct {
	Title       string
	Description string
}

// Fetcher looks up page metadata. Lookup is best effort: ok is false when
// nothing usable was found, and no error is ever reported to the caller.
type Fetcher interface {
	Lookup(ctx context.Context, url string) (meta Metadata, ok bool)
}

// htmlFetcher fetches the page and reads its <title> and meta tags.
type htmlFetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewFetcher creates a fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) Fetcher {
	return NewFetcherWithLogger(timeout, slog.Default())
}

// NewFetcherWithLogger creates a fetcher with a custom logger.
func NewFetcherWithLogger(timeout time.Duration, logger *slog.Logger) Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &htmlFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
		logger:    logger.With("component", "metadata.fetcher"),
	}
}

// Lookup fetches url and extracts its title and description.
func (f *htmlFetcher) Lookup(ctx context.Context, url string) (Metadata, bool) {
	logger := f.logger.With("url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		logger.DebugContext(ctx, "Cannot build metadata request", "error", err)
		return Metadata{}, false
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		logger.WarnContext(ctx, "Metadata request failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return Metadata{}, false
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.WarnContext(ctx, "Metadata request returned non-success status",
			"status_code", resp.StatusCode)
		return Metadata{}, false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		logger.WarnContext(ctx, "Failed to parse page", "error", err)
		return Metadata{}, false
	}

	meta := Extract(doc)
	if meta.Title == "" && meta.Description == "" {
		logger.DebugContext(ctx, "Page has no title or description")
		return Metadata{}, false
	}

	logger.DebugContext(ctx, "Found page metadata",
		"title", meta.Title,
		"has_description", meta.Description != "")
	return meta, true
}

// Extract reads the title and description from a parsed page.
// <title> wins over og:title; meta description wins over og:description.
func Extract(doc *goquery.Document) Metadata {
	return Metadata{
		Title: firstNonEmpty(
			doc.Find("title").First().Text(),
			attr(doc, "meta[property='og:title']", "content"),
		),
		Description: firstNonEmpty(
			attr(doc, "meta[name='description']", "content"),
			attr(doc, "meta[property='og:description']", "content"),
		),
	}
}

func attr(doc *goquery.Document, selector, name string) string {
	value, _ := doc.Find(selector).First().Attr(name)
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.Join(strings.Fields(v), " "); v != "" {
			return v
		}
	}
	return ""
}

var _ Fetcher = &htmlFetcher{}
