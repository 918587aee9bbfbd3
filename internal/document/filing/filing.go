// Package filing implements the Document Fetcher's Filing backend: listing
// recent regulatory filings for a CIK from the Atom filing-listing feed,
// tagging each with a form type matched against an ordered list of
// strategically relevant filing types, and optionally extracting the primary
// document's text truncated to 5000 characters. Body extraction is wired but
// gated behind FetchBodies, off by default.
package filing

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/signalbridge/collector/internal/document"
	"github.com/signalbridge/collector/internal/extract"
	"github.com/signalbridge/collector/internal/fetch"
)

// maxBodyChars bounds extracted filing body text. Grounded verbatim on
// SECEDGARMonitor.fetch_filing_content's 5000-character truncation.
const maxBodyChars = 5000

// strategicFormTypes is the ordered table of form types considered
// strategically relevant, matched in order so earlier entries win ties.
// Unrecognized form types are tagged "OTHER" rather than dropped.
var strategicFormTypes = []string{
	"10-K", "10-Q", "8-K", "DEF 14A", "13F-HR", "SC 13G", "SC 13D", "424B", "S-1",
}

// Backend lists and optionally fetches bodies of recent filings for a CIK.
type Backend struct {
	Fetcher     *fetch.Client
	UserAgent   string
	FetchBodies bool // opt-in; the upstream equivalent ships this disabled

	// listURLOverride replaces the SEC EDGAR listing URL in tests.
	listURLOverride string
}

func (b *Backend) Name() string { return "filing" }

// Fetch lists filings for the company identifier carried in query (a raw or
// pre-zero-padded CIK string; company names and tickers are not resolved),
// keeping every entry in listing order with its form type tagged from
// strategicFormTypes or "OTHER", capped at maxResults.
func (b *Backend) Fetch(ctx context.Context, query any, window document.Window, maxResults int) ([]document.Document, error) {
	cik, ok := query.(string)
	if !ok || strings.TrimSpace(cik) == "" {
		return nil, fmt.Errorf("filing backend: query must be a non-empty CIK")
	}
	cik = zeroPadCIK(cik)

	listURL := fmt.Sprintf(
		"https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK=%s&type=&dateb=&owner=include&count=100&output=atom",
		cik,
	)
	if b.listURLOverride != "" {
		listURL = b.listURLOverride
	}
	body, err := b.get(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("filing backend: list filings for CIK %s: %w", cik, err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("filing backend: parse filing listing: %w", err)
	}

	out := make([]document.Document, 0, maxResults)
	for _, entry := range feed.Entries {
		if len(out) >= maxResults {
			break
		}
		formType := extractFormType(entry.Title)
		published, _ := time.Parse(time.RFC3339, entry.Updated)
		if !window.From.IsZero() && !published.IsZero() && published.Before(window.From) {
			continue
		}

		docURL := entry.Link.Href
		doc := document.Document{
			Title:   strings.TrimSpace(entry.Title),
			URL:     docURL,
			Source:  "SEC EDGAR",
			Backend: document.KindFiling,
			BackendMeta: map[string]any{
				"formType": formType,
				"cik":      cik,
			},
		}
		if !published.IsZero() {
			p := published.UTC()
			doc.PublishedAt = &p
		}

		if b.FetchBodies && docURL != "" {
			if text, err := b.fetchFilingContent(ctx, docURL); err == nil {
				doc.Body = text
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

// fetchFilingContent resolves the primary document link from a filing's
// index page and extracts truncated body text from it. Implemented but only
// reached when FetchBodies is set.
func (b *Backend) fetchFilingContent(ctx context.Context, indexURL string) (string, error) {
	indexBody, err := b.get(ctx, indexURL)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(indexBody)))
	if err != nil {
		return "", fmt.Errorf("parse filing index: %w", err)
	}

	var primaryHref string
	doc.Find("table.tableFile a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, exists := s.Attr("href")
		if !exists {
			return true
		}
		lower := strings.ToLower(href)
		if strings.HasSuffix(lower, ".htm") || strings.HasSuffix(lower, ".html") {
			primaryHref = href
			return false
		}
		return true
	})
	if primaryHref == "" {
		return "", fmt.Errorf("no primary document link found")
	}
	primaryURL := resolveURL(indexURL, primaryHref)

	primaryBody, err := b.get(ctx, primaryURL)
	if err != nil {
		return "", err
	}
	extracted := extract.FromHTML(primaryBody)
	text := strings.TrimSpace(extracted.Text)
	if len(text) > maxBodyChars {
		text = text[:maxBodyChars]
	}
	return text, nil
}

func (b *Backend) get(ctx context.Context, url string) ([]byte, error) {
	fetcher := b.Fetcher
	if fetcher == nil {
		ua := b.UserAgent
		if ua == "" {
			ua = "SignalCollector/1.0"
		}
		fetcher = &fetch.Client{
			UserAgent:         ua,
			MaxAttempts:       2,
			PerRequestTimeout: 20 * time.Second,
		}
	}
	body, _, err := fetcher.Get(ctx, url)
	return body, err
}

// extractFormType reads the form type from a filing's atom entry title (e.g.
// "8-K - Current report"), matching strategicFormTypes in order so an
// earlier, more specific entry wins over a shorter prefix. Titles matching
// none of them are tagged "OTHER" rather than dropped.
func extractFormType(title string) string {
	upper := strings.ToUpper(title)
	for _, t := range strategicFormTypes {
		if strings.Contains(upper, strings.ToUpper(t)) {
			return t
		}
	}
	return "OTHER"
}

// zeroPadCIK left-pads a CIK to SEC's canonical 10-digit form, stripping any
// non-digit prefix such as "CIK" first.
func zeroPadCIK(raw string) string {
	digits := strings.TrimLeft(raw, "CIKcik")
	digits = strings.TrimSpace(digits)
	for len(digits) < 10 {
		digits = "0" + digits
	}
	return digits
}

// resolveURL joins a relative href against the index page's URL. SEC filing
// index pages always use simple path-relative links off the same host.
func resolveURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		idx := strings.Index(base[8:], "/")
		if idx == -1 {
			return base + href
		}
		return base[:8+idx] + href
	}
	lastSlash := strings.LastIndex(base, "/")
	if lastSlash == -1 {
		return href
	}
	return base[:lastSlash+1] + href
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string `xml:"title"`
	Updated string `xml:"updated"`
	Link    struct {
		Href string `xml:"href,attr"`
	} `xml:"link"`
	Category struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}
