// Package orchestrator runs a campaign end to end: the linear state machine
// that sequences Planner, Discovery, per-PIR Collector/Evaluator fan-out, and
// summary assembly, enforcing the campaign deadline as a hard cancellation
// point. Per-PIR work runs concurrently; a single PIR's errors are recorded
// against it and never abort its siblings.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/signalbridge/collector/internal/campaign"
	"github.com/signalbridge/collector/internal/collector"
	"github.com/signalbridge/collector/internal/discovery"
	"github.com/signalbridge/collector/internal/evaluator"
	"github.com/signalbridge/collector/internal/persistence"
	"github.com/signalbridge/collector/internal/planner"
	"github.com/signalbridge/collector/internal/synth"
)

// State names the orchestrator's linear progression.
type State string

const (
	StateInit          State = "Init"
	StateContextLoaded State = "ContextLoaded"
	StatePlanReady     State = "PlanReady"
	StateSourcesReady  State = "SourcesReady"
	StateCollecting    State = "Collecting"
	StateEvaluating    State = "Evaluating"
	StateSummarized    State = "Summarized"
	StateDone          State = "Done"
	StateFailed        State = "Failed"
)

// PIRSummary reports one PIR's outcome within a campaign.
type PIRSummary struct {
	PIRID            string
	DocumentsFetched int
	SignalsCreated   int
	Errors           map[string]int
}

// CampaignSummary is the Orchestrator's terminal output.
type CampaignSummary struct {
	SessionID     string
	State         State
	StartedAt     time.Time
	FinishedAt    time.Time
	PerPIR        []PIRSummary
	Partial       bool
	CrossPIRBrief string
}

// Orchestrator sequences a single campaign run end to end.
type Orchestrator struct {
	Planner      planner.Planner
	Discoverer   *discovery.Discoverer
	NewCollector func() *collector.Collector
	Evaluator    *evaluator.Evaluator
	Synthesizer  *synth.Synthesizer
	Store        *persistence.Store
}

// Run executes one campaign end to end. candidates names the hosts Source
// Discovery should validate; callers typically build this from the campaign
// definition's SourceCandidates field (converted to discovery.Candidate).
func (o *Orchestrator) Run(ctx context.Context, def *campaign.Definition, candidates []discovery.Candidate) (CampaignSummary, error) {
	summary := CampaignSummary{SessionID: def.SessionID, State: StateInit, StartedAt: time.Now().UTC()}

	if len(def.PIRs) == 0 {
		summary.State = StateFailed
		return summary, fmt.Errorf("orchestrator: no PIRs found")
	}
	summary.State = StateContextLoaded

	strat, err := o.Planner.Plan(ctx, def)
	if err != nil {
		summary.State = StateFailed
		return summary, fmt.Errorf("orchestrator: %w", err)
	}
	summary.State = StatePlanReady

	params := planner.DeriveParams(strat, len(def.PIRs))
	deadline := time.Duration(params.TimeoutSeconds) * time.Second
	campaignCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var sources discovery.Result
	if o.Discoverer != nil && len(candidates) > 0 {
		sources = o.Discoverer.Discover(campaignCtx, candidates)
		if len(sources.Validated) == 0 {
			log.Warn().Str("component", "discovery").Str("kind", "DiscoveryError").
				Str("session_id", def.SessionID).Msg("no sources validated; continuing with source-independent backends")
		}
	}
	summary.State = StateSourcesReady

	summary.State = StateCollecting
	perPIR := o.collectAndEvaluate(campaignCtx, def, strat, params, sources)
	summary.PerPIR = perPIR
	summary.State = StateEvaluating

	if campaignCtx.Err() != nil {
		summary.Partial = true
		log.Warn().Str("component", "orchestrator").Str("kind", "DeadlineExceeded").
			Str("session_id", def.SessionID).Msg("campaign deadline exceeded; returning partial summary")
	}

	if o.Synthesizer != nil {
		if brief := o.runCrossPIRSynthesis(ctx, def, perPIR); brief != "" {
			summary.CrossPIRBrief = brief
		}
	}

	summary.State = StateSummarized
	summary.FinishedAt = time.Now().UTC()
	summary.State = StateDone
	return summary, nil
}

// collectAndEvaluate fans out one goroutine per PIR; a PIR's own errors are
// soft (FetchError/EvaluationError/PersistenceError) and never abort peers.
func (o *Orchestrator) collectAndEvaluate(ctx context.Context, def *campaign.Definition, strat planner.Strategy, params planner.CollectionParams, sources discovery.Result) []PIRSummary {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []PIRSummary
	)

	for _, pir := range def.PIRs {
		pir := pir
		wg.Add(1)
		go func() {
			defer wg.Done()
			ps := o.runOnePIR(ctx, def, pir, strat, params, sources)
			mu.Lock()
			results = append(results, ps)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) runOnePIR(ctx context.Context, def *campaign.Definition, pir campaign.PIR, strat planner.Strategy, params planner.CollectionParams, sources discovery.Result) PIRSummary {
	ps := PIRSummary{PIRID: pir.ID, Errors: map[string]int{}}

	sourceURLs := make([]string, 0, len(sources.Validated))
	for _, s := range sources.Validated {
		sourceURLs = append(sourceURLs, s.URL)
	}

	c := o.NewCollector()
	c.Sources = sourceURLs
	docs, err := c.Collect(ctx, pir, strat, params)
	if err != nil {
		ps.Errors["FetchError"]++
		log.Warn().Str("component", "collector").Str("kind", "FetchError").
			Str("session_id", def.SessionID).Str("pir_id", pir.ID).Err(err).Msg("collection failed for PIR")
		return ps
	}
	ps.DocumentsFetched = len(docs)

	signals, evalErrors := o.Evaluator.EvaluatePIR(ctx, pir.ID, pir.Text, docs, strat, params)
	ps.SignalsCreated = len(signals)
	if evalErrors > 0 {
		ps.Errors["EvaluationError"] += evalErrors
	}

	if o.Synthesizer != nil {
		excerpts := make([]synth.SignalExcerpt, 0, len(signals))
		for _, sig := range signals {
			excerpts = append(excerpts, synth.SignalExcerpt{PIRID: pir.ID, Title: sig.Title, Reasoning: sig.Reasoning})
		}
		o.Synthesizer.AddSignals(excerpts...)
	}

	if o.Store != nil {
		for _, sig := range signals {
			if err := o.Store.WriteSignal(ctx, def.SessionID, sig); err != nil {
				ps.Errors["PersistenceError"]++
				log.Warn().Str("component", "persistence").Str("kind", "PersistenceError").
					Str("session_id", def.SessionID).Str("pir_id", pir.ID).Err(err).Msg("signal write failed")
			}
		}
	}
	return ps
}

func (o *Orchestrator) runCrossPIRSynthesis(ctx context.Context, def *campaign.Definition, perPIR []PIRSummary) string {
	total := 0
	for _, p := range perPIR {
		total += p.SignalsCreated
	}
	if total == 0 {
		return ""
	}
	synthCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	brief, err := o.Synthesizer.SynthesizeCrossPIR(synthCtx, def)
	if err != nil {
		log.Warn().Str("component", "synth").Str("kind", "CrossPIRError").
			Str("session_id", def.SessionID).Err(err).Msg("cross-PIR synthesis failed; omitting brief")
		return ""
	}
	return brief
}
