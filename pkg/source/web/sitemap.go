package web

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// XML structures for sitemap parsing

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Location string `xml:"loc"`
	LastMod  string `xml:"lastmod,omitempty"`
}

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapRef `xml:"sitemap"`
}

type sitemapRef struct {
	Location string `xml:"loc"`
}

// parseSitemap fetches and parses a sitemap. Sitemap indexes are followed
// one level deep; a child sitemap that fails to parse is skipped so one bad
// shard does not sink the whole enumeration.
func (s *Source) parseSitemap(ctx context.Context, sitemapURL string) ([]pageEntry, error) {
	body, err := s.fetchSitemap(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	if strings.Contains(string(body), "<sitemapindex") {
		var index sitemapIndex
		if err := xml.Unmarshal(body, &index); err != nil {
			return nil, fmt.Errorf("failed to decode sitemap index XML: %w", err)
		}

		var all []pageEntry
		for _, ref := range index.Sitemaps {
			if ref.Location == "" {
				continue
			}
			childBody, err := s.fetchSitemap(ctx, ref.Location)
			if err != nil {
				continue
			}
			entries, err := decodeURLSet(childBody)
			if err != nil {
				continue
			}
			all = append(all, entries...)
		}
		return all, nil
	}

	return decodeURLSet(body)
}

func (s *Source) fetchSitemap(ctx context.Context, sitemapURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", sitemapURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sitemap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func decodeURLSet(body []byte) ([]pageEntry, error) {
	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("failed to decode sitemap XML: %w", err)
	}

	entries := make([]pageEntry, 0, len(set.URLs))
	for _, u := range set.URLs {
		if u.Location == "" {
			continue
		}
		entry := pageEntry{url: u.Location}
		if u.LastMod != "" {
			if t, err := time.Parse(time.RFC3339, u.LastMod); err == nil {
				entry.published = t
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
