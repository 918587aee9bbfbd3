// Package synth implements the supplemental Cross-PIR Synthesis pass: a
// best-effort extra LLM call, after evaluation completes, that samples
// recently created signals and asks for a short paragraph describing
// cross-cutting themes across PIRs.
package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/signalbridge/collector/internal/cache"
	"github.com/signalbridge/collector/internal/campaign"
	"github.com/signalbridge/collector/internal/llm"
)

// maxSampledSignals and maxInPromptSignals are the original system's sampling
// constants for the cross-PIR pass, reproduced exactly: up to 50 signals
// inform volume context, but only the first 20 (by completion order) are
// placed verbatim in the prompt.
const (
	maxSampledSignals  = 50
	maxInPromptSignals = 20
)

// SignalExcerpt is the minimal signal data the synthesis prompt needs.
type SignalExcerpt struct {
	PIRID     string
	Title     string
	Reasoning string
}

// Synthesizer produces the cross-PIR brief.
type Synthesizer struct {
	Client llm.Client
	Model  string
	Cache  *cache.LLMCache

	mu sync.Mutex
	// signals is populated by the orchestrator as signals complete, via
	// AddSignals; the last maxSampledSignals entries (by append order) are
	// sampled per run.
	signals []SignalExcerpt
}

// AddSignals records signals as they complete so a later SynthesizeCrossPIR
// call can sample across the whole campaign. Safe for concurrent use by the
// orchestrator's per-PIR goroutines.
func (s *Synthesizer) AddSignals(excerpts ...SignalExcerpt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, excerpts...)
}

// SynthesizeCrossPIR produces a short cross-cutting brief from the sampled
// signals. Failure is never fatal to the caller; it simply returns an error
// the orchestrator logs and ignores.
func (s *Synthesizer) SynthesizeCrossPIR(ctx context.Context, def *campaign.Definition) (string, error) {
	if s.Client == nil || strings.TrimSpace(s.Model) == "" {
		return "", errors.New("synthesizer not configured")
	}
	s.mu.Lock()
	sample := make([]SignalExcerpt, len(s.signals))
	copy(sample, s.signals)
	s.mu.Unlock()
	if len(sample) > maxSampledSignals {
		sample = sample[len(sample)-maxSampledSignals:]
	}
	if len(sample) == 0 {
		return "", errors.New("no signals to synthesize")
	}

	system := buildSystemMessage()
	user := buildUserMessage(def, sample)

	if s.Cache != nil {
		key := cache.KeyFrom(s.Model, system+"\n\n"+user)
		if raw, ok, _ := s.Cache.Get(ctx, key); ok {
			if brief := strings.TrimSpace(string(raw)); brief != "" {
				return brief, nil
			}
		}
	}

	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.2,
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("cross-pir synthesis call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices from model")
	}
	brief := strings.TrimSpace(resp.Choices[0].Message.Content)
	if brief == "" {
		return "", errors.New("empty synthesis output")
	}

	if s.Cache != nil {
		_ = s.Cache.Save(ctx, cache.KeyFrom(s.Model, system+"\n\n"+user), []byte(brief))
	}
	return brief, nil
}

func buildSystemMessage() string {
	return "You are a strategic intelligence analyst. Given a sample of signals collected across several " +
		"Priority Intelligence Requirements, write one short paragraph (3-5 sentences) describing cross-cutting " +
		"themes, recurring entities, or patterns that span multiple PIRs. Do not repeat individual signal details " +
		"verbatim; synthesize. If no cross-cutting theme is apparent, say so plainly."
}

func buildUserMessage(def *campaign.Definition, sample []SignalExcerpt) string {
	var sb strings.Builder
	sb.WriteString("Campaign objective: ")
	sb.WriteString(def.Objective)
	sb.WriteString(fmt.Sprintf("\nTotal signals sampled: %d\n\n", len(sample)))

	inPrompt := sample
	if len(inPrompt) > maxInPromptSignals {
		inPrompt = inPrompt[:maxInPromptSignals]
	}
	for _, sig := range inPrompt {
		sb.WriteString(fmt.Sprintf("- [%s] %s: %s\n", sig.PIRID, sig.Title, sig.Reasoning))
	}
	if len(sample) > len(inPrompt) {
		sb.WriteString(fmt.Sprintf("\n(%d further signals omitted from this prompt but counted above)\n", len(sample)-len(inPrompt)))
	}
	return sb.String()
}
