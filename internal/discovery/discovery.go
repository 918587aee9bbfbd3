// Package discovery validates LLM-suggested candidate feeds directly, then
// falls back to sweeping a fixed list of well-known feed paths on a host
// when the direct hit rate is low.
package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/signalbridge/collector/internal/validator"
)

// endpoints is the fixed ordered list of canonical feed paths probed during
// the endpoint-sweep phase. Grounded verbatim on AIRSSDiscovery.WORKING_ENDPOINTS.
var endpoints = []string{
	"/rss", "/rss.xml", "/feed", "/feed.xml", "/feeds/all.xml",
	"/news/rss", "/news/feed", "/news/rss.xml", "/api/rss",
	"/feeds/news.xml", "/atom.xml", "/feeds.xml",
}

const (
	domainTimeout        = 25 * time.Second
	endpointTimeout       = 6 * time.Second
	maxParallelDomains    = 10
	maxParallelEndpoints  = 5
)

// Candidate is an LLM-suggested source, possibly with a direct feed URL.
type Candidate struct {
	Host     string
	Name     string
	FeedURL  string
}

// Result is the outcome of a discovery run.
type Result struct {
	Validated   []validator.Source
	FailedNames []string
}

// Discoverer drives the two-phase discovery algorithm.
type Discoverer struct {
	Validator *validator.Validator
}

// New builds a Discoverer with the given validator.
func New(v *validator.Validator) *Discoverer {
	return &Discoverer{Validator: v}
}

// Discover runs phase 1 (direct-URL probing) and, only if the phase-1 hit
// rate is below 50%, phase 2 (endpoint sweep). The union of successes,
// deduplicated by URL, is returned alongside the names that failed entirely.
func (d *Discoverer) Discover(ctx context.Context, candidates []Candidate) Result {
	validated, attemptedNames, succeededNames := d.phaseDirect(ctx, candidates)

	if len(candidates) > 0 && float64(len(succeededNames))/float64(len(candidates)) < 0.5 {
		for _, c := range candidates {
			if c.Host != "" {
				attemptedNames[c.Host] = true
			}
		}
		swept := d.phaseSweep(ctx, candidates, succeededNames)
		for _, s := range swept {
			succeededNames[s.Host] = true
			validated = append(validated, s)
		}
	}

	validated = dedupeByURL(validated)

	var failed []string
	for _, c := range candidates {
		if !succeededNames[c.Host] && !attemptedNames[c.Host] {
			continue
		}
		if !succeededNames[c.Host] {
			failed = append(failed, c.Name)
		}
	}
	return Result{Validated: validated, FailedNames: failed}
}

func (d *Discoverer) phaseDirect(ctx context.Context, candidates []Candidate) ([]validator.Source, map[string]bool, map[string]bool) {
	var (
		mu         sync.Mutex
		validated  []validator.Source
		attempted  = map[string]bool{}
		succeeded  = map[string]bool{}
		sem        = make(chan struct{}, maxParallelDomains)
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range candidates {
		c := c
		if strings.TrimSpace(c.FeedURL) == "" {
			continue
		}
		attempted[c.Host] = true
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			src, reason := d.Validator.Validate(gctx, c.FeedURL, "direct")
			if reason != "" {
				return nil
			}
			mu.Lock()
			validated = append(validated, *src)
			succeeded[c.Host] = true
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return validated, attempted, succeeded
}

func (d *Discoverer) phaseSweep(ctx context.Context, candidates []Candidate, alreadySucceeded map[string]bool) []validator.Source {
	hosts := make([]string, 0, len(candidates))
	seen := map[string]bool{}
	for _, c := range candidates {
		if alreadySucceeded[c.Host] || c.Host == "" || seen[c.Host] {
			continue
		}
		seen[c.Host] = true
		hosts = append(hosts, c.Host)
	}

	var (
		mu      sync.Mutex
		results []validator.Source
	)

	for start := 0; start < len(hosts); start += maxParallelDomains {
		end := start + maxParallelDomains
		if end > len(hosts) {
			end = len(hosts)
		}
		batch := hosts[start:end]

		g, _ := errgroup.WithContext(ctx)
		for _, h := range batch {
			h := h
			g.Go(func() error {
				hostCtx, cancel := context.WithTimeout(ctx, domainTimeout)
				defer cancel()
				if src := d.sweepHost(hostCtx, h); src != nil {
					mu.Lock()
					results = append(results, *src)
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

// sweepHost probes endpoints in batches of maxParallelEndpoints, stopping at
// the first success within a batch.
func (d *Discoverer) sweepHost(ctx context.Context, host string) *validator.Source {
	for start := 0; start < len(endpoints); start += maxParallelEndpoints {
		end := start + maxParallelEndpoints
		if end > len(endpoints) {
			end = len(endpoints)
		}
		batch := endpoints[start:end]

		type probe struct {
			src *validator.Source
		}
		resultCh := make(chan probe, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for _, path := range batch {
			path := path
			g.Go(func() error {
				epCtx, cancel := context.WithTimeout(gctx, endpointTimeout)
				defer cancel()
				url := "https://" + host + path
				src, reason := d.Validator.Validate(epCtx, url, "endpoint-sweep")
				if reason == "" {
					select {
					case resultCh <- probe{src: src}:
					default:
					}
				}
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
		for p := range resultCh {
			if p.src != nil {
				return p.src
			}
		}
	}
	return nil
}

func dedupeByURL(sources []validator.Source) []validator.Source {
	seen := map[string]bool{}
	out := make([]validator.Source, 0, len(sources))
	for _, s := range sources {
		if seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		out = append(out, s)
	}
	return out
}
