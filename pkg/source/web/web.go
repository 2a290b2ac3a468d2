// Package web implements the document source for public web content: page
// URLs are enumerated from an RSS/Atom feed or an XML sitemap, then each
// page is fetched and reduced to readable text. It exists so the export
// pipeline is not tied to one document store; any feed-addressable site can
// be exported through the same shape.
package web

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"docs-export/pkg/config"
	"docs-export/pkg/domain"
	"docs-export/pkg/httpclient"
	"docs-export/pkg/source"
)

// Config selects the scope the web source exports.
type Config struct {
	// FeedURL is an RSS/Atom feed or XML sitemap enumerating the pages.
	FeedURL string

	// MaxDocuments caps the number of pages fetched (<=0 means no limit).
	MaxDocuments int

	// Retry bounds per-page fetches.
	Retry config.RetryPolicy
}

// Source fetches documents from web pages.
type Source struct {
	client *httpclient.HTTPClient
	feed   *gofeed.Parser
	cfg    Config
}

// New creates a web source. Both the feed parser and the page fetcher get
// the policy's timeout, so no network call can outlive it.
func New(cfg Config) *Source {
	feed := gofeed.NewParser()
	feed.Client = &http.Client{Timeout: cfg.Retry.Timeout()}
	return &Source{
		client: httpclient.NewClientWithTimeout(httpclient.BrowserClient, cfg.Retry.Timeout()),
		feed:   feed,
		cfg:    cfg,
	}
}

// pageEntry is one enumerated page before its content is fetched.
type pageEntry struct {
	url       string
	title     string
	published time.Time
}

// FetchAll enumerates pages from the configured feed or sitemap and fetches
// each one. Enumeration failure is fatal; a failed page fetch or extraction
// skips that page and records it in the report.
func (s *Source) FetchAll(ctx context.Context) ([]domain.Document, *source.Report, error) {
	entries, err := s.enumerate(ctx)
	if err != nil {
		return nil, nil, err
	}

	if s.cfg.MaxDocuments > 0 && len(entries) > s.cfg.MaxDocuments {
		entries = entries[:s.cfg.MaxDocuments]
	}
	log.Printf("Enumerated %d pages from %s", len(entries), s.cfg.FeedURL)

	report := &source.Report{Found: len(entries)}
	docs := make([]domain.Document, 0, len(entries))

	for i, entry := range entries {
		log.Printf("Fetching %d/%d: %s", i+1, len(entries), entry.url)

		var html string
		err := s.cfg.Retry.Do(ctx, func() error {
			var fetchErr error
			html, fetchErr = s.fetchPage(entry.url)
			return fetchErr
		})
		if err != nil {
			log.Printf("Skipping %s: %v", entry.url, err)
			report.Skip(entry.url)
			continue
		}

		text, err := extractText(html)
		if err != nil || text == "" {
			log.Printf("Skipping %s: no readable content (%v)", entry.url, err)
			report.Skip(entry.url)
			continue
		}

		title := entry.title
		if title == "" {
			title, _ = extractTitle(html)
		}

		docs = append(docs, domain.Document{
			ID:         entry.url,
			Title:      title,
			Folder:     hostOf(entry.url),
			Content:    text,
			ModifiedAt: entry.published,
		})
		report.Fetched++
	}

	log.Printf("Web fetch complete: %d fetched, %d skipped", report.Fetched, report.Skipped)
	return docs, report, nil
}

// enumerate tries the feed parser first and falls back to sitemap XML, so a
// single FeedURL setting works for both kinds of index.
func (s *Source) enumerate(ctx context.Context) ([]pageEntry, error) {
	feed, feedErr := s.feed.ParseURLWithContext(s.cfg.FeedURL, ctx)
	if feedErr == nil && feed != nil && len(feed.Items) > 0 {
		entries := make([]pageEntry, 0, len(feed.Items))
		for _, item := range feed.Items {
			if item.Link == "" {
				continue
			}
			entry := pageEntry{url: item.Link, title: item.Title}
			if item.PublishedParsed != nil {
				entry.published = *item.PublishedParsed
			}
			entries = append(entries, entry)
		}
		if len(entries) > 0 {
			return entries, nil
		}
	}

	entries, sitemapErr := s.parseSitemap(ctx, s.cfg.FeedURL)
	if sitemapErr != nil {
		return nil, fmt.Errorf("enumerate %s: feed: %v; sitemap: %w", s.cfg.FeedURL, feedErr, sitemapErr)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no pages found at %s", s.cfg.FeedURL)
	}
	return entries, nil
}

// fetchPage fetches a page's HTML.
func (s *Source) fetchPage(pageURL string) (string, error) {
	resp, err := s.client.Get(pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if strings.TrimSpace(string(body)) == "" {
		return "", fmt.Errorf("server returned empty response")
	}
	return string(body), nil
}

func hostOf(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
