// Package validator implements source validation: given a candidate URL,
// issue a bounded GET and classify the response as a valid Atom/RSS-family
// feed by sniffing a small prefix of the body.
package validator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// markers are the lower-cased substrings whose presence within the first
// prefix bytes of a response body classifies it as a feed. Grounded on
// AIRSSDiscovery._quick_validate_url / _validate_single_rss_url.
var markers = []string{"<rss", "<feed", "<channel>", "<item>", "<entry>", "application/rss+xml", "application/atom+xml"}

const (
	// maxPrefixBytes bounds how much of the body we read before giving up.
	maxPrefixBytes = 2048
	defaultTimeout = 6 * time.Second
)

// Source is a validated feed candidate.
type Source struct {
	URL             string
	Title           string
	Host            string
	DiscoveryMethod string
	Confidence      float64
}

// Validator probes URLs and classifies them as valid feeds or not.
type Validator struct {
	HTTPClient *http.Client
	UserAgent  string
	Timeout    time.Duration
}

// New builds a Validator with sane defaults.
func New(userAgent string) *Validator {
	return &Validator{
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		UserAgent:  userAgent,
		Timeout:    defaultTimeout,
	}
}

// Validate probes url and returns a Source on success, or a reason string on
// failure. Neither outcome is fatal to a calling batch.
func (v *Validator) Validate(ctx context.Context, rawURL, discoveryMethod string) (*Source, string) {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Sprintf("invalid URL: %v", err)
	}
	if v.UserAgent != "" {
		req.Header.Set("User-Agent", v.UserAgent)
	}

	client := v.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Sprintf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Sprintf("unexpected status: %d", resp.StatusCode)
	}

	prefix := make([]byte, maxPrefixBytes)
	n, _ := io.ReadFull(io.LimitReader(resp.Body, maxPrefixBytes), prefix)
	prefix = prefix[:n]

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	lower := strings.ToLower(string(prefix))
	if !looksLikeFeed(lower, contentType) {
		return nil, "prefix lacks feed markers"
	}

	title := extractTitle(string(prefix))
	if title == "" {
		title = hostOf(rawURL)
	}
	return &Source{
		URL:             rawURL,
		Title:           title,
		Host:            hostOf(rawURL),
		DiscoveryMethod: discoveryMethod,
		Confidence:      1.0,
	}, ""
}

func looksLikeFeed(lowerBody, contentType string) bool {
	for _, m := range markers {
		if strings.Contains(lowerBody, m) || strings.Contains(contentType, m) {
			return true
		}
	}
	return false
}

// extractTitle pulls the first <title>...</title> value, truncated to 100
// characters, or "" when absent (Validate then uses the host as the title).
func extractTitle(body string) string {
	lower := strings.ToLower(body)
	start := strings.Index(lower, "<title")
	if start == -1 {
		return ""
	}
	tagEnd := strings.Index(lower[start:], ">")
	if tagEnd == -1 {
		return ""
	}
	contentStart := start + tagEnd + 1
	end := strings.Index(lower[contentStart:], "</title>")
	if end == -1 {
		return ""
	}
	title := strings.TrimSpace(body[contentStart : contentStart+end])
	if len(title) > 100 {
		title = title[:100]
	}
	return title
}

func hostOf(rawURL string) string {
	s := strings.TrimPrefix(rawURL, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexAny(s, "/?#"); i != -1 {
		s = s[:i]
	}
	return s
}
