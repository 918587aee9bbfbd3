// Package evaluator scores each (document, PIR) pair with one LLM call,
// applies the inclusion rule and per-PIR signal cap, and builds a Signal for
// every included document. Batch fan-out uses golang.org/x/sync/errgroup,
// configured so one evaluation's error never aborts its batch peers.
package evaluator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/signalbridge/collector/internal/document"
	"github.com/signalbridge/collector/internal/llm"
	"github.com/signalbridge/collector/internal/planner"
)

const evalTimeout = 10 * time.Second

// Evaluation is the LLM's structured per-document relevance judgment.
type Evaluation struct {
	Score                 float64  `json:"score"`
	Decision              string   `json:"decision"` // include|exclude|uncertain
	Reasoning             string   `json:"reasoning"`
	Connections           []string `json:"connections"`
	DecisionSupportValue  string   `json:"decisionSupportValue"`
	IntelligenceType      string   `json:"intelligenceType"`
	Urgency               string   `json:"urgency"`
}

// Signal is the persisted record built from an included Evaluation.
type Signal struct {
	IndicatorID string
	SourceName  string
	Title       string
	Body        string
	URL         string
	PublishedAt *time.Time
	MatchScore  float64
	Reasoning   string
	RawMeta     Evaluation
}

// Stats counts batch outcomes for observability.
type Stats struct {
	mu        sync.Mutex
	Evaluated int
	Errored   int
	Included  int
}

func (s *Stats) recordEvaluated() { s.mu.Lock(); s.Evaluated++; s.mu.Unlock() }
func (s *Stats) recordErrored()   { s.mu.Lock(); s.Errored++; s.mu.Unlock() }
func (s *Stats) recordIncluded()  { s.mu.Lock(); s.Included++; s.mu.Unlock() }

// Evaluator scores documents against a PIR and emits Signals.
type Evaluator struct {
	Client llm.Client
	Model  string
	Stats  *Stats
}

// EvaluatePIR scores every document against pir in batches of
// params.EvalBatchSize, stopping once params.MaxSignalsPerPir signals have
// been emitted. Batches run sequentially; within a batch, documents evaluate
// concurrently. The returned errored count is scoped to this call, so a
// caller fanning out EvaluatePIR across PIRs concurrently against a shared
// Evaluator gets a correct per-PIR count rather than the Evaluator's
// campaign-wide running total.
func (e *Evaluator) EvaluatePIR(ctx context.Context, pirID, pirText string, docs []document.Document, strat planner.Strategy, params planner.CollectionParams) ([]Signal, int) {
	if e.Stats == nil {
		e.Stats = &Stats{}
	}
	var (
		mu      sync.Mutex
		signals []Signal
		errored int
	)

	for start := 0; start < len(docs); start += params.EvalBatchSize {
		if len(signals) >= params.MaxSignalsPerPir {
			break
		}
		end := start + params.EvalBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for _, d := range batch {
			d := d
			g.Go(func() error {
				mu.Lock()
				full := len(signals) >= params.MaxSignalsPerPir
				mu.Unlock()
				if full {
					return nil
				}

				evalCtx, cancel := context.WithTimeout(gctx, evalTimeout)
				defer cancel()
				eval, err := e.evaluateOne(evalCtx, pirText, d, strat, params.Threshold)
				if err != nil {
					e.Stats.recordErrored()
					mu.Lock()
					errored++
					mu.Unlock()
					return nil
				}
				e.Stats.recordEvaluated()

				if !includes(eval, params.Threshold) {
					return nil
				}

				mu.Lock()
				defer mu.Unlock()
				if len(signals) >= params.MaxSignalsPerPir {
					return nil
				}
				e.Stats.recordIncluded()
				signals = append(signals, buildSignal(pirID, d, eval))
				return nil
			})
		}
		_ = g.Wait()
	}
	return signals, errored
}

// includes reports whether a document should become a Signal: always when
// the decision is "include", otherwise when its score exceeds threshold and
// the decision is not "exclude".
func includes(eval Evaluation, threshold float64) bool {
	if eval.Decision == "include" {
		return true
	}
	return eval.Score > threshold && eval.Decision != "exclude"
}

func buildSignal(pirID string, d document.Document, eval Evaluation) Signal {
	return Signal{
		IndicatorID: pirID,
		SourceName:  d.Source,
		Title:       d.Title,
		Body:        d.Body,
		URL:         d.URL,
		PublishedAt: d.PublishedAt,
		MatchScore:  eval.Score,
		Reasoning:   eval.Reasoning,
		RawMeta:     eval,
	}
}

func (e *Evaluator) evaluateOne(ctx context.Context, pirText string, d document.Document, strat planner.Strategy, threshold float64) (Evaluation, error) {
	system := "You are an intelligence evaluator. Respond with strict JSON only: " +
		"{\"score\": number in [0,1], \"decision\": \"include\"|\"exclude\"|\"uncertain\", \"reasoning\": string, " +
		"\"connections\": string[], \"decisionSupportValue\": string, \"intelligenceType\": string, \"urgency\": string}."

	bodyExcerpt := d.Body
	if len(bodyExcerpt) > 500 {
		bodyExcerpt = bodyExcerpt[:500]
	}
	user := fmt.Sprintf(
		"Approach: %s\nDomains: %s\nUrgency: %s\nPIR: %s\nThreshold: %.2f\n\nDocument title: %s\nDocument source: %s\nDocument url: %s\nDocument excerpt: %s",
		strat.Approach, strings.Join(strat.Domains, ", "), strat.Urgency, pirText, threshold,
		d.Title, d.Source, d.URL, bodyExcerpt,
	)

	resp, err := e.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
		N:           1,
	})
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluator call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Evaluation{}, fmt.Errorf("evaluator: no choices")
	}

	var eval Evaluation
	if err := llm.DecodeJSONContent(resp.Choices[0].Message.Content, &eval); err != nil {
		return Evaluation{}, err
	}
	return eval, nil
}
