// Package document defines the normalized Document record shared by every
// Document Fetcher backend and the common Backend interface they implement.
package document

import (
	"context"
	"time"
)

// Kind identifies which backend produced a Document.
type Kind string

const (
	KindSearch Kind = "search"
	KindFeed   Kind = "feed"
	KindFiling Kind = "filing"
)

// Document is the uniform record every backend normalizes into.
type Document struct {
	Title       string
	Body        string
	URL         string
	Source      string
	PublishedAt *time.Time
	Backend     Kind
	BackendMeta map[string]any
}

// Window bounds a collection request to a time range.
type Window struct {
	From time.Time
	To   time.Time
}

// Backend is the common interface the three Document Fetcher backends
// implement. query is backend-specific (a search string, a ValidatedSource,
// or a company identifier); maxResults bounds the result count.
type Backend interface {
	Name() string
	Fetch(ctx context.Context, query any, window Window, maxResults int) ([]Document, error)
}
