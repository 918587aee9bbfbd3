// Package planner turns a campaign definition into a Strategy via one LLM
// call (cached, strict-JSON contract), then derives numeric collection
// parameters from that Strategy with a pure deterministic function.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rs/zerolog/log"

	"github.com/signalbridge/collector/internal/cache"
	"github.com/signalbridge/collector/internal/campaign"
	"github.com/signalbridge/collector/internal/llm"
)

// Strategy is the Planner's structured output.
type Strategy struct {
	Approach         string   `json:"approach"`
	Domains          []string `json:"domains"`
	Urgency          string   `json:"urgency"`
	Intensity        string   `json:"intensity"`
	Selectivity      string   `json:"selectivity"`
	SourcePriorities []string `json:"sourcePriorities"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
}

// PlanningError reports a fatal campaign failure: a missing required field or
// a non-JSON planner response. Planning failures are fail-fast; there is no
// defaulting path, unlike the Per-PIR Collector's query-generation fallback.
type PlanningError struct {
	Reason string
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %s", e.Reason)
}

// Planner produces a Strategy from a campaign definition.
type Planner interface {
	Plan(ctx context.Context, def *campaign.Definition) (Strategy, error)
}

// LLMPlanner calls an OpenAI-compatible endpoint and enforces the
// required-fields contract.
type LLMPlanner struct {
	Client  llm.Client
	Model   string
	Cache   *cache.LLMCache
	Verbose bool
}

func buildSystemMessage() string {
	return "You are a strategic intelligence planning assistant. Respond with strict JSON only, no narration. " +
		"The JSON schema is {\"approach\": string, \"domains\": string[], \"urgency\": \"crisis\"|\"strategic\"|\"long_term\", " +
		"\"intensity\": \"light\"|\"standard\"|\"intensive\"|\"comprehensive\", " +
		"\"selectivity\": \"very_selective\"|\"selective\"|\"balanced\"|\"inclusive\", " +
		"\"sourcePriorities\": string[], \"confidence\": number in [0,1], \"reasoning\": string}. " +
		"Every field is required; do not omit any of them."
}

func buildUserPrompt(def *campaign.Definition) string {
	var sb strings.Builder
	sb.WriteString("Objective: ")
	sb.WriteString(def.Objective)
	if def.Background != "" {
		sb.WriteString("\nBackground: ")
		sb.WriteString(def.Background)
	}
	if len(def.Decisions) > 0 {
		sb.WriteString("\nDecisions to inform:\n")
		for _, d := range def.Decisions {
			sb.WriteString("- ")
			sb.WriteString(d)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nPriority Intelligence Requirements:\n")
	for _, p := range def.PIRs {
		sb.WriteString("- ")
		sb.WriteString(p.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Plan calls the chat completions API once and validates the required-fields
// contract. A cache hit short-circuits the network call entirely.
func (p *LLMPlanner) Plan(ctx context.Context, def *campaign.Definition) (Strategy, error) {
	if p.Client == nil || p.Model == "" {
		return Strategy{}, &PlanningError{Reason: "planner not configured"}
	}

	system := buildSystemMessage()
	user := buildUserPrompt(def)

	if p.Cache != nil {
		key := cache.KeyFrom(p.Model, system+"\n\n"+user)
		if raw, ok, _ := p.Cache.Get(ctx, key); ok {
			var strat Strategy
			if err := llm.DecodeJSONContent(string(raw), &strat); err == nil {
				if err := requireFields(strat); err == nil {
					return strat, nil
				}
			}
		}
	}

	if p.Verbose {
		log.Debug().Str("stage", "planner").Str("model", p.Model).
			Int("system_len", len(system)).Int("user_len", len(user)).Msg("planner prompt")
	}

	resp, err := p.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
		N:           1,
	})
	if err != nil {
		return Strategy{}, fmt.Errorf("planner call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Strategy{}, &PlanningError{Reason: "no choices returned"}
	}

	var strat Strategy
	if err := llm.DecodeJSONContent(resp.Choices[0].Message.Content, &strat); err != nil {
		return Strategy{}, &PlanningError{Reason: err.Error()}
	}
	if err := requireFields(strat); err != nil {
		return Strategy{}, &PlanningError{Reason: err.Error()}
	}

	if p.Cache != nil {
		key := cache.KeyFrom(p.Model, system+"\n\n"+user)
		_ = p.Cache.Save(ctx, key, []byte(resp.Choices[0].Message.Content))
	}
	return strat, nil
}

// requireFields checks every Strategy field except confidence, whose zero
// value cannot be told apart from an absent field after decoding.
func requireFields(s Strategy) error {
	if strings.TrimSpace(s.Approach) == "" {
		return errors.New("missing required field: approach")
	}
	if len(s.Domains) == 0 {
		return errors.New("missing required field: domains")
	}
	if strings.TrimSpace(s.Urgency) == "" {
		return errors.New("missing required field: urgency")
	}
	if strings.TrimSpace(s.Intensity) == "" {
		return errors.New("missing required field: intensity")
	}
	if strings.TrimSpace(s.Selectivity) == "" {
		return errors.New("missing required field: selectivity")
	}
	if len(s.SourcePriorities) == 0 {
		return errors.New("missing required field: sourcePriorities")
	}
	if strings.TrimSpace(s.Reasoning) == "" {
		return errors.New("missing required field: reasoning")
	}
	return nil
}
