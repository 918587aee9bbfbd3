package planner

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/signalbridge/collector/internal/campaign"
)

type stubClient struct {
	content string
	err     error
}

func (s *stubClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.content}}},
	}, nil
}

func testDefinition() *campaign.Definition {
	return &campaign.Definition{
		Objective: "watch hydraulic pump tech",
		PIRs:      []campaign.PIR{{Text: "Monitor pump efficiency ratings"}},
	}
}

func TestLLMPlanner_ValidResponse(t *testing.T) {
	content := `{"approach":"competitive tech","domains":["hydraulics"],"urgency":"strategic","intensity":"standard","selectivity":"balanced","sourcePriorities":["trade"],"confidence":0.8,"reasoning":"because"}`
	p := &LLMPlanner{Client: &stubClient{content: content}, Model: "test-model"}
	strat, err := p.Plan(context.Background(), testDefinition())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strat.Approach != "competitive tech" || strat.Urgency != "strategic" {
		t.Fatalf("unexpected strategy: %+v", strat)
	}
}

func TestLLMPlanner_MissingFieldFailsFast(t *testing.T) {
	content := `{"approach":"competitive tech","domains":["hydraulics"]}`
	p := &LLMPlanner{Client: &stubClient{content: content}, Model: "test-model"}
	_, err := p.Plan(context.Background(), testDefinition())
	if err == nil {
		t.Fatal("expected planning error for missing fields")
	}
	if _, ok := err.(*PlanningError); !ok {
		t.Fatalf("expected *PlanningError, got %T", err)
	}
}

func TestLLMPlanner_NonJSONFailsFast(t *testing.T) {
	p := &LLMPlanner{Client: &stubClient{content: "not json"}, Model: "test-model"}
	_, err := p.Plan(context.Background(), testDefinition())
	if err == nil {
		t.Fatal("expected planning error for non-JSON response")
	}
}

func TestDeriveParams_HappyPath(t *testing.T) {
	strat := Strategy{Intensity: "standard", Urgency: "strategic", Selectivity: "balanced"}
	params := DeriveParams(strat, 1)
	if params.MaxDocsPerPir != 500 {
		t.Fatalf("expected maxDocsPerPir=500, got %d", params.MaxDocsPerPir)
	}
	if diff := params.Threshold - 0.30; diff > 0.0001 || diff < -0.0001 {
		t.Fatalf("expected threshold~=0.30, got %v", params.Threshold)
	}
	if params.TimeoutSeconds != 300 {
		t.Fatalf("expected timeoutSeconds=300, got %d", params.TimeoutSeconds)
	}
	if params.EvalBatchSize != 30 {
		t.Fatalf("expected evalBatchSize=30, got %d", params.EvalBatchSize)
	}
	if params.MaxSignalsPerPir != 25 {
		t.Fatalf("expected maxSignalsPerPir=25, got %d", params.MaxSignalsPerPir)
	}
}

func TestDeriveParams_UrgencyAdjustment(t *testing.T) {
	strat := Strategy{Intensity: "standard", Urgency: "crisis", Selectivity: "balanced"}
	params := DeriveParams(strat, 1)
	if diff := params.Threshold - 0.21; diff > 0.0001 || diff < -0.0001 {
		t.Fatalf("expected threshold~=0.21, got %v", params.Threshold)
	}
	if params.TimeoutSeconds != 180 {
		t.Fatalf("expected timeoutSeconds=180, got %d", params.TimeoutSeconds)
	}
}

func TestDeriveParams_PIRCountScaling(t *testing.T) {
	strat := Strategy{Intensity: "standard", Urgency: "strategic", Selectivity: "balanced"}
	params := DeriveParams(strat, 7)
	if params.MaxDocsPerPir != 400 {
		t.Fatalf("expected maxDocsPerPir=400, got %d", params.MaxDocsPerPir)
	}
}
