package evaluator

import (
	"context"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/signalbridge/collector/internal/document"
	"github.com/signalbridge/collector/internal/planner"
)

type stubLLM struct {
	responses []string
	i         int
	err       error
}

func (s *stubLLM) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	content := s.responses[s.i%len(s.responses)]
	s.i++
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}, nil
}

func TestEvaluatePIR_IncludesAboveThreshold(t *testing.T) {
	e := &Evaluator{
		Client: &stubLLM{responses: []string{
			`{"score":0.9,"decision":"uncertain","reasoning":"strong match"}`,
		}},
		Model: "test-model",
	}
	docs := []document.Document{{Title: "Doc", URL: "https://example.com/1"}}
	params := planner.CollectionParams{EvalBatchSize: 10, MaxSignalsPerPir: 10, Threshold: 0.3}
	signals, _ := e.EvaluatePIR(context.Background(), "pir-1", "watch pump efficiency", docs, planner.Strategy{}, params)
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
}

func TestEvaluatePIR_ExcludesBelowThresholdEvenWithDecisionUncertain(t *testing.T) {
	e := &Evaluator{
		Client: &stubLLM{responses: []string{
			`{"score":0.1,"decision":"uncertain","reasoning":"weak match"}`,
		}},
		Model: "test-model",
	}
	docs := []document.Document{{Title: "Doc", URL: "https://example.com/1"}}
	params := planner.CollectionParams{EvalBatchSize: 10, MaxSignalsPerPir: 10, Threshold: 0.3}
	signals, _ := e.EvaluatePIR(context.Background(), "pir-1", "watch pump efficiency", docs, planner.Strategy{}, params)
	if len(signals) != 0 {
		t.Fatalf("expected 0 signals, got %d", len(signals))
	}
}

func TestEvaluatePIR_IncludeDecisionOverridesLowScore(t *testing.T) {
	e := &Evaluator{
		Client: &stubLLM{responses: []string{
			`{"score":0.05,"decision":"include","reasoning":"explicit include"}`,
		}},
		Model: "test-model",
	}
	docs := []document.Document{{Title: "Doc", URL: "https://example.com/1"}}
	params := planner.CollectionParams{EvalBatchSize: 10, MaxSignalsPerPir: 10, Threshold: 0.3}
	signals, _ := e.EvaluatePIR(context.Background(), "pir-1", "watch pump efficiency", docs, planner.Strategy{}, params)
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal for explicit include, got %d", len(signals))
	}
}

func TestEvaluatePIR_StopsAtMaxSignalsPerPir(t *testing.T) {
	e := &Evaluator{
		Client: &stubLLM{responses: []string{
			`{"score":0.9,"decision":"include","reasoning":"match"}`,
		}},
		Model: "test-model",
	}
	docs := make([]document.Document, 5)
	for i := range docs {
		docs[i] = document.Document{Title: "Doc", URL: fmt.Sprintf("https://example.com/%d", i)}
	}
	params := planner.CollectionParams{EvalBatchSize: 5, MaxSignalsPerPir: 2, Threshold: 0.3}
	signals, _ := e.EvaluatePIR(context.Background(), "pir-1", "watch pump efficiency", docs, planner.Strategy{}, params)
	if len(signals) != 2 {
		t.Fatalf("expected exactly 2 signals (cap), got %d", len(signals))
	}
}

func TestEvaluatePIR_OneBadEvaluationDoesNotAbortBatch(t *testing.T) {
	e := &Evaluator{
		Client: &stubLLM{err: fmt.Errorf("boom")},
		Model:  "test-model",
		Stats:  &Stats{},
	}
	docs := []document.Document{{Title: "Doc", URL: "https://example.com/1"}}
	params := planner.CollectionParams{EvalBatchSize: 10, MaxSignalsPerPir: 10, Threshold: 0.3}
	signals, errored := e.EvaluatePIR(context.Background(), "pir-1", "watch pump efficiency", docs, planner.Strategy{}, params)
	if len(signals) != 0 {
		t.Fatalf("expected 0 signals on error, got %d", len(signals))
	}
	if errored != 1 {
		t.Fatalf("expected 1 errored count returned from this call, got %d", errored)
	}
	if e.Stats.Errored != 1 {
		t.Fatalf("expected 1 errored count on shared Stats, got %d", e.Stats.Errored)
	}
}

func TestEvaluatePIR_ErroredCountIsScopedPerCall(t *testing.T) {
	shared := &Stats{}
	e := &Evaluator{Client: &stubLLM{err: fmt.Errorf("boom")}, Model: "test-model", Stats: shared}
	docs := []document.Document{{Title: "Doc", URL: "https://example.com/1"}}
	params := planner.CollectionParams{EvalBatchSize: 10, MaxSignalsPerPir: 10, Threshold: 0.3}

	_, firstErrored := e.EvaluatePIR(context.Background(), "pir-1", "pir one", docs, planner.Strategy{}, params)
	_, secondErrored := e.EvaluatePIR(context.Background(), "pir-2", "pir two", docs, planner.Strategy{}, params)

	if firstErrored != 1 || secondErrored != 1 {
		t.Fatalf("expected each call to report its own errored count of 1, got %d and %d", firstErrored, secondErrored)
	}
	if shared.Errored != 2 {
		t.Fatalf("expected shared Stats to accumulate across calls, got %d", shared.Errored)
	}
}
