package collector

import (
	"context"
	"fmt"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/signalbridge/collector/internal/campaign"
	"github.com/signalbridge/collector/internal/document"
	"github.com/signalbridge/collector/internal/planner"
)

type stubBackend struct {
	name string
	docs []document.Document
	err  error
}

func (s *stubBackend) Name() string { return s.name }
func (s *stubBackend) Fetch(ctx context.Context, query any, window document.Window, maxResults int) ([]document.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := s.docs
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

type stubLLM struct {
	content string
	err     error
}

func (s *stubLLM) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.content}}},
	}, nil
}

func TestCollect_DedupesAcrossBackends(t *testing.T) {
	shared := document.Document{URL: "https://example.com/a", Title: "Shared"}
	c := &Collector{
		Client:        &stubLLM{content: `{"queries":["q1","q2"]}`},
		Model:         "test-model",
		SearchBackend: &stubBackend{name: "search", docs: []document.Document{shared, {URL: "https://example.com/b"}}},
		FeedBackend:   &stubBackend{name: "feed", docs: []document.Document{shared}},
		Sources:       []string{"feed-1"},
	}
	pir := campaign.PIR{Text: "Monitor pump efficiency ratings"}
	strat := planner.Strategy{Approach: "competitive tech", Domains: []string{"hydraulics"}}
	params := planner.CollectionParams{MaxDocsPerPir: 10}

	docs, err := c.Collect(context.Background(), pir, strat, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 unique documents, got %d: %+v", len(docs), docs)
	}
}

func TestCollect_FallsBackToTruncatedPIROnLLMFailure(t *testing.T) {
	c := &Collector{
		Client:        &stubLLM{err: fmt.Errorf("boom")},
		Model:         "test-model",
		SearchBackend: &recordingBackend{},
	}
	pir := campaign.PIR{Text: "a very long priority intelligence requirement describing hydraulic pump fleet efficiency trends across multiple regions and vendors"}
	_, err := c.Collect(context.Background(), pir, planner.Strategy{}, planner.CollectionParams{MaxDocsPerPir: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rb := c.SearchBackend.(*recordingBackend)
	if len(rb.queriesSeen) != 1 {
		t.Fatalf("expected exactly one fallback query, got %v", rb.queriesSeen)
	}
	if len(rb.queriesSeen[0].(string)) > 100 {
		t.Fatalf("expected fallback query truncated to 100 chars, got len=%d", len(rb.queriesSeen[0].(string)))
	}
}

func TestCollect_PacesSuccessiveSearchCallsByRateLimit(t *testing.T) {
	rb := &recordingBackend{}
	c := &Collector{
		Client:          &stubLLM{content: `{"queries":["q1","q2","q3"]}`},
		Model:           "test-model",
		SearchBackend:   rb,
		SearchRateLimit: 20 * time.Millisecond,
	}
	pir := campaign.PIR{Text: "Monitor pump efficiency ratings"}
	params := planner.CollectionParams{MaxDocsPerPir: 30}

	start := time.Now()
	_, err := c.Collect(context.Background(), pir, planner.Strategy{}, params)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rb.queriesSeen) != 3 {
		t.Fatalf("expected 3 queries, got %v", rb.queriesSeen)
	}
	if elapsed < 40*time.Millisecond {
		t.Fatalf("expected at least 2 rate-limit pauses between 3 calls, elapsed only %v", elapsed)
	}
}

type recordingBackend struct {
	queriesSeen []any
}

func (r *recordingBackend) Name() string { return "recording" }
func (r *recordingBackend) Fetch(ctx context.Context, query any, window document.Window, maxResults int) ([]document.Document, error) {
	r.queriesSeen = append(r.queriesSeen, query)
	return nil, nil
}
