// Package aggregate merges document groups returned by the Document Fetcher
// backends, canonicalizing URLs (lowercasing host, stripping fragments and
// tracking parameters) and deduplicating on the result, keeping the first
// occurrence of each URL. Used by internal/collector to combine the Search,
// Feed, and Filing backends' results for a single PIR into one ordered,
// deduplicated set before truncation to the PIR's document budget.
package aggregate

import (
	"net/url"
	"strings"

	"github.com/signalbridge/collector/internal/document"
)

// MergeAndNormalize merges document groups, canonicalizes URLs, trims
// obvious tracking parameters, and de-duplicates exact URLs.
func MergeAndNormalize(groups [][]document.Document) []document.Document {
	seen := map[string]struct{}{}
	out := make([]document.Document, 0, 64)
	for _, g := range groups {
		for _, d := range g {
			if d.URL == "" {
				continue
			}
			u, err := url.Parse(d.URL)
			if err != nil {
				continue
			}
			normalizeURL(u)
			key := u.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			d.URL = key
			out = append(out, d)
		}
	}
	return out
}

func normalizeURL(u *url.URL) {
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	q := u.Query()
	for _, p := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"} {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
}
