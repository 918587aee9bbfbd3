// Package selecter applies diversity-aware selection to a merged document
// set: a per-domain cap so one prolific host can't crowd out the rest, then
// a hard total cap. Used by internal/collector as the final step, with the
// total cap set to the PIR's document budget
// (planner.CollectionParams.MaxDocsPerPir).
package selecter

import (
	"net/url"
	"sort"
	"strings"

	"github.com/signalbridge/collector/internal/document"
)

// Options configures selection constraints.
type Options struct {
	MaxTotal  int
	PerDomain int
}

// Select applies diversity-aware selection with per-domain caps, preferring
// documents with longer bodies (more to evaluate) when trimming.
func Select(docs []document.Document, opt Options) []document.Document {
	if opt.MaxTotal <= 0 {
		opt.MaxTotal = 10
	}
	if opt.PerDomain <= 0 {
		opt.PerDomain = 3
	}

	domainCounts := map[string]int{}
	seenURL := map[string]struct{}{}

	sorted := make([]document.Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Body) > len(sorted[j].Body)
	})

	out := make([]document.Document, 0, opt.MaxTotal)
	for _, d := range sorted {
		u, err := url.Parse(strings.TrimSpace(d.URL))
		if err != nil || u.Host == "" {
			continue
		}
		canon := canonicalizeURL(u)
		if _, ok := seenURL[canon]; ok {
			continue
		}
		host := strings.ToLower(u.Host)
		if domainCounts[host] >= opt.PerDomain {
			continue
		}
		seenURL[canon] = struct{}{}
		domainCounts[host]++
		out = append(out, d)
		if len(out) >= opt.MaxTotal {
			break
		}
	}
	return out
}

func canonicalizeURL(u *url.URL) string {
	u2 := *u
	u2.Fragment = ""
	u2.Host = strings.ToLower(u2.Host)
	if (u2.Scheme == "http" && strings.HasSuffix(u2.Host, ":80")) || (u2.Scheme == "https" && strings.HasSuffix(u2.Host, ":443")) {
		u2.Host = u2.Hostname()
	}
	return u2.String()
}
