// Package collector implements the per-PIR document collection sequence: for
// each PIR, generate search queries via the LLM (falling back to a truncated
// PIR text on failure), fan out to the Document Fetcher backends under the
// per-PIR document budget, and dedupe/truncate the merged result via
// internal/aggregate and internal/select.
package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/signalbridge/collector/internal/aggregate"
	"github.com/signalbridge/collector/internal/campaign"
	"github.com/signalbridge/collector/internal/document"
	"github.com/signalbridge/collector/internal/llm"
	"github.com/signalbridge/collector/internal/planner"
	selecter "github.com/signalbridge/collector/internal/select"
)

const queryGenTimeout = 15 * time.Second

// queryResponse is the LLM's structured query-generation output.
type queryResponse struct {
	Queries []string `json:"queries"`
}

// Collector drives document collection for one PIR at a time.
type Collector struct {
	Client        llm.Client
	Model         string
	SearchBackend document.Backend
	FeedBackend   document.Backend // fed one ValidatedSource URL per call via Sources
	FilingBackend document.Backend
	Sources       []string // feed/filing identities available to this campaign

	// SearchRateLimit is the sleep applied between successive SearchBackend
	// calls within one PIR's query loop, honoring the search API's
	// politeness expectation without the backend itself knowing about the
	// collector's call sequence.
	SearchRateLimit time.Duration
}

// Collect runs the full per-PIR collection sequence.
func (c *Collector) Collect(ctx context.Context, pir campaign.PIR, strat planner.Strategy, params planner.CollectionParams) ([]document.Document, error) {
	queries := c.generateQueries(ctx, pir, strat)

	searchBudget := params.MaxDocsPerPir / 2
	remaining := params.MaxDocsPerPir - searchBudget

	var groups [][]document.Document

	if c.SearchBackend != nil && len(queries) > 0 {
		perQuery := searchBudget / len(queries)
		if perQuery < 1 {
			perQuery = 1
		}
		for i, q := range queries {
			if i > 0 && c.SearchRateLimit > 0 {
				if err := sleepOrCancel(ctx, c.SearchRateLimit); err != nil {
					break
				}
			}
			docs, err := c.SearchBackend.Fetch(ctx, q, document.Window{}, perQuery)
			if err == nil {
				groups = append(groups, docs)
			}
		}
	}

	if remaining > 0 && len(c.Sources) > 0 {
		perSource := remaining / len(c.Sources)
		if perSource < 1 {
			perSource = 1
		}
		for _, src := range c.Sources {
			if c.FeedBackend != nil {
				if docs, err := c.FeedBackend.Fetch(ctx, src, document.Window{}, perSource); err == nil {
					groups = append(groups, docs)
				}
			}
			if c.FilingBackend != nil {
				if docs, err := c.FilingBackend.Fetch(ctx, src, document.Window{}, perSource); err == nil {
					groups = append(groups, docs)
				}
			}
		}
	}

	merged := aggregate.MergeAndNormalize(groups)
	selected := selecter.Select(merged, selecter.Options{MaxTotal: params.MaxDocsPerPir, PerDomain: maxPerDomain(params.MaxDocsPerPir)})
	return selected, nil
}

// maxPerDomain bounds how many documents a single host may contribute to a
// PIR's result set, scaled to the overall budget so small budgets still
// leave room for a handful of distinct hosts.
func maxPerDomain(maxDocsPerPir int) int {
	n := maxDocsPerPir / 5
	if n < 3 {
		n = 3
	}
	return n
}

// generateQueries asks the LLM for 3-5 queries; on any failure it falls back
// to a single query built from the truncated PIR text.
func (c *Collector) generateQueries(ctx context.Context, pir campaign.PIR, strat planner.Strategy) []string {
	if c.Client != nil && c.Model != "" {
		genCtx, cancel := context.WithTimeout(ctx, queryGenTimeout)
		defer cancel()
		if queries, err := c.callQueryLLM(genCtx, pir, strat); err == nil && len(queries) > 0 {
			return queries
		}
	}
	return []string{truncate(pir.Text, 100)}
}

func (c *Collector) callQueryLLM(ctx context.Context, pir campaign.PIR, strat planner.Strategy) ([]string, error) {
	system := "You are a search query generation assistant. Respond with strict JSON only: {\"queries\": string[3..5]}."
	user := fmt.Sprintf("PIR: %s\nApproach: %s\nDomains: %s", pir.Text, strat.Approach, strings.Join(strat.Domains, ", "))

	resp, err := c.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.2,
		N:           1,
	})
	if err != nil {
		return nil, fmt.Errorf("query generation call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("query generation: no choices")
	}
	var parsed queryResponse
	if err := llm.DecodeJSONContent(resp.Choices[0].Message.Content, &parsed); err != nil {
		return nil, err
	}
	return parsed.Queries, nil
}

// sleepOrCancel pauses for d, returning early with ctx.Err() if ctx is
// canceled first.
func sleepOrCancel(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
