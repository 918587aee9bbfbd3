// Package feed implements the Document Fetcher's Feed backend: pulling
// entries from a validated RSS/Atom source and deduplicating them against
// entries already seen for that source.
package feed

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/text/unicode/norm"

	"github.com/signalbridge/collector/internal/document"
)

// The per-source dedup set is bounded so it doesn't grow unbounded across a
// long-running process: once it holds more than pruneThreshold hashes, only
// the most recent maxRetainedHashes are kept.
const (
	pruneThreshold    = 10000
	maxRetainedHashes = 5000
)

// Backend pulls entries from a single validated feed URL per call.
type Backend struct {
	HTTPClient *http.Client
	UserAgent  string

	seen map[string][]string // source URL -> ordered dedup hashes, oldest first
}

func (b *Backend) Name() string { return "feed" }

// Fetch parses the feed at the URL carried in query (a document.Window-scoped
// feed URL string) and returns entries newer than window.From that haven't
// been seen before on a prior call for the same source, capped at maxResults.
func (b *Backend) Fetch(ctx context.Context, query any, window document.Window, maxResults int) ([]document.Document, error) {
	feedURL, ok := query.(string)
	if !ok || strings.TrimSpace(feedURL) == "" {
		return nil, fmt.Errorf("feed backend: query must be a non-empty feed URL")
	}

	fp := gofeed.NewParser()
	if b.HTTPClient != nil {
		fp.Client = b.HTTPClient
	}
	if b.UserAgent != "" {
		fp.UserAgent = b.UserAgent
	}

	parsed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("feed backend: parse %s: %w", feedURL, err)
	}

	if b.seen == nil {
		b.seen = map[string][]string{}
	}
	seenHashes := hashSet(b.seen[feedURL])

	out := make([]document.Document, 0, len(parsed.Items))
	var newHashes []string
	for _, item := range parsed.Items {
		if len(out) >= maxResults {
			break
		}
		published := itemPublished(item)
		if published != nil && !window.From.IsZero() && published.Before(window.From) {
			continue
		}

		hash := entryHash(item.Title, item.Link)
		if seenHashes[hash] {
			continue
		}
		seenHashes[hash] = true

		out = append(out, document.Document{
			Title:       strings.TrimSpace(item.Title),
			Body:        strings.TrimSpace(firstNonEmpty(item.Description, item.Content)),
			URL:         strings.TrimSpace(item.Link),
			Source:      strings.TrimSpace(parsed.Title),
			PublishedAt: published,
			Backend:     document.KindFeed,
		})
		newHashes = append(newHashes, hash)
	}

	b.seen[feedURL] = pruneHashes(append(b.seen[feedURL], newHashes...))
	return out, nil
}

func itemPublished(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		return &t
	}
	if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		return &t
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// entryHash builds a stable dedup key for a (title, link) pair. Inputs are
// Unicode-normalized to NFC before hashing so visually identical titles with
// differing combining-character forms collapse to the same key.
func entryHash(title, link string) string {
	normalized := norm.NFC.String(strings.TrimSpace(title)) + "|" + norm.NFC.String(strings.TrimSpace(link))
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func hashSet(hashes []string) map[string]bool {
	m := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		m[h] = true
	}
	return m
}

func pruneHashes(hashes []string) []string {
	if len(hashes) <= pruneThreshold {
		return hashes
	}
	return hashes[len(hashes)-maxRetainedHashes:]
}
