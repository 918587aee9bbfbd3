// Package search implements the Document Fetcher's Search backend: a
// keyword-query search API returning dated news-style articles, with
// upstream vendor-prefix stripping on the source field.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/signalbridge/collector/internal/document"
	"github.com/signalbridge/collector/internal/fetch"
)

// Backend queries a NewsAPI-shaped keyword-search endpoint. The ~100ms
// per-PIR rate limit is enforced by internal/collector.Collector, which owns
// the per-PIR call sequence across multiple queries; Backend.Fetch itself
// issues a single request with no pacing of its own.
type Backend struct {
	BaseURL   string
	APIKey    string
	Fetcher   *fetch.Client
	UserAgent string
}

func (b *Backend) Name() string { return "search" }

// Fetch issues one query against the search API. query must be a string.
func (b *Backend) Fetch(ctx context.Context, query any, window document.Window, maxResults int) ([]document.Document, error) {
	if b.APIKey == "" {
		return nil, fmt.Errorf("search backend: no API key configured")
	}
	q, ok := query.(string)
	if !ok || strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("search backend: query must be a non-empty string")
	}
	pageSize := maxResults
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	base := b.BaseURL
	if base == "" {
		base = "https://newsapi.org/v2/everything"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("search backend: parse base url: %w", err)
	}
	qs := u.Query()
	qs.Set("q", q)
	if !window.From.IsZero() {
		qs.Set("from", window.From.UTC().Format("2006-01-02"))
	}
	if !window.To.IsZero() {
		qs.Set("to", window.To.UTC().Format("2006-01-02"))
	}
	qs.Set("sortBy", "relevancy")
	qs.Set("pageSize", fmt.Sprintf("%d", pageSize))
	qs.Set("language", "en")
	qs.Set("apiKey", b.APIKey)
	u.RawQuery = qs.Encode()

	fetcher := b.Fetcher
	if fetcher == nil {
		fetcher = &fetch.Client{
			UserAgent:                  b.UserAgent,
			MaxAttempts:                2,
			PerRequestTimeout:          30 * time.Second,
			AllowedContentTypePrefixes: []string{"application/json"},
		}
	}
	body, _, err := fetcher.Get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("search backend: request failed: %w", err)
	}

	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("search backend: decode response: %w", err)
	}

	out := make([]document.Document, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		if a.URL == "" || a.Title == "" {
			continue
		}
		var published *time.Time
		if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			utc := t.UTC()
			published = &utc
		}
		out = append(out, document.Document{
			Title:       strings.TrimSpace(a.Title),
			Body:        strings.TrimSpace(a.Description),
			URL:         strings.TrimSpace(a.URL),
			Source:      stripVendorPrefix(a.Source.Name),
			PublishedAt: published,
			Backend:     document.KindSearch,
		})
		if len(out) >= pageSize {
			break
		}
	}
	return out, nil
}

type response struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// stripVendorPrefix removes known vendor decorations from upstream source
// names, e.g. "NewsAPI - Bloomberg" -> "Bloomberg". Grounded on
// AIEvaluator._extract_source_name.
func stripVendorPrefix(name string) string {
	return strings.TrimSpace(strings.TrimPrefix(name, "NewsAPI - "))
}
