// Command collector runs one strategic-intelligence collection campaign:
// load configuration and a campaign definition, plan, discover, collect,
// evaluate, persist, and optionally export a PDF summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/signalbridge/collector/internal/cache"
	"github.com/signalbridge/collector/internal/campaign"
	"github.com/signalbridge/collector/internal/collector"
	"github.com/signalbridge/collector/internal/config"
	"github.com/signalbridge/collector/internal/discovery"
	"github.com/signalbridge/collector/internal/document/feed"
	"github.com/signalbridge/collector/internal/document/filing"
	"github.com/signalbridge/collector/internal/document/search"
	"github.com/signalbridge/collector/internal/evaluator"
	"github.com/signalbridge/collector/internal/fetch"
	"github.com/signalbridge/collector/internal/orchestrator"
	"github.com/signalbridge/collector/internal/persistence"
	"github.com/signalbridge/collector/internal/planner"
	"github.com/signalbridge/collector/internal/report"
	"github.com/signalbridge/collector/internal/synth"
	"github.com/signalbridge/collector/internal/validator"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	envFile := flag.String("env-file", ".env", "Optional .env file to load before reading environment variables")
	selfTest := flag.Bool("self-test", false, "Run a self-contained smoke campaign against a bundled sample definition and exit")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Warn().Err(err).Msg("env file not loaded")
	}

	cfg := config.FromEnv()
	if *verbose {
		cfg.Verbose = true
	}
	if *selfTest {
		cfg.SelfTest = true
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("configuration invalid")
		os.Exit(1)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Error().Err(err).Msg("campaign failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var def *campaign.Definition
	var err error
	if cfg.SelfTest {
		def, err = campaign.Parse([]byte(selfTestDefinitionYAML))
	} else {
		def, err = campaign.Load(cfg.CampaignPath)
	}
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}

	transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		transportCfg.BaseURL = cfg.LLMBaseURL
	}
	aiClient := openai.NewClientWithConfig(transportCfg)
	llmCache := &cache.LLMCache{Dir: cfg.CacheDir, StrictPerms: true}

	store, err := persistence.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open persistence: %w", err)
	}
	defer store.Close()
	if err := persistence.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	plannerImpl := &planner.LLMPlanner{Client: aiClient, Model: cfg.LLMModel, Cache: llmCache, Verbose: cfg.Verbose}
	disc := discovery.New(validator.New(cfg.FilingUserAgent))

	httpCache := &cache.HTTPCache{Dir: filepath.Join(cfg.CacheDir, "http")}
	if n, err := cache.PurgeHTTPCacheByAge(httpCache.Dir, 7*24*time.Hour); err != nil {
		log.Warn().Err(err).Msg("http cache purge failed")
	} else if n > 0 {
		log.Info().Int("removed", n).Msg("purged stale http cache entries")
	}
	if n, err := cache.PurgeLLMCacheByAge(llmCache.Dir, 30*24*time.Hour); err != nil {
		log.Warn().Err(err).Msg("llm cache purge failed")
	} else if n > 0 {
		log.Info().Int("removed", n).Msg("purged stale llm cache entries")
	}
	searchFetcher := &fetch.Client{
		UserAgent: "SignalCollector/1.0", MaxAttempts: 2, PerRequestTimeout: 30 * time.Second,
		Cache: httpCache, AllowedContentTypePrefixes: []string{"application/json"},
	}
	filingFetcher := &fetch.Client{
		UserAgent: cfg.FilingUserAgent, MaxAttempts: 2, PerRequestTimeout: 20 * time.Second,
		Cache: httpCache, RedirectMaxHops: 5,
	}

	var searchBackend = &search.Backend{APIKey: cfg.SearchAPIKey, BaseURL: cfg.SearchAPIURL, Fetcher: searchFetcher}
	feedBackend := &feed.Backend{}
	filingBackend := &filing.Backend{UserAgent: cfg.FilingUserAgent, FetchBodies: cfg.FetchFilingBodies, Fetcher: filingFetcher}

	synthesizer := &synth.Synthesizer{Client: aiClient, Model: cfg.LLMModel, Cache: llmCache}

	o := &orchestrator.Orchestrator{
		Planner:    plannerImpl,
		Discoverer: disc,
		NewCollector: func() *collector.Collector {
			return &collector.Collector{
				Client:          aiClient,
				Model:           cfg.LLMModel,
				SearchBackend:   searchBackend,
				FeedBackend:     feedBackend,
				FilingBackend:   filingBackend,
				SearchRateLimit: 100 * time.Millisecond,
			}
		},
		Evaluator:   &evaluator.Evaluator{Client: aiClient, Model: cfg.LLMModel, Stats: &evaluator.Stats{}},
		Synthesizer: synthesizer,
		Store:       store,
	}

	candidates := make([]discovery.Candidate, 0, len(def.SourceCandidates))
	for _, sc := range def.SourceCandidates {
		candidates = append(candidates, discovery.Candidate{Host: sc.Host, Name: sc.Name, FeedURL: sc.FeedURL})
	}

	summary, err := o.Run(ctx, def, candidates)
	if err != nil {
		return fmt.Errorf("orchestrator run: %w", err)
	}
	log.Info().Str("session_id", summary.SessionID).Str("state", string(summary.State)).
		Bool("partial", summary.Partial).Int("pirs", len(summary.PerPIR)).Msg("campaign finished")

	if cfg.ReportPath != "" {
		if err := report.WritePDF(summary, cfg.ReportPath); err != nil {
			log.Warn().Err(err).Msg("report export failed")
		}
	}
	return nil
}

const selfTestDefinitionYAML = `
objective: watch hydraulic pump tech for competitive shifts
background: a small self-test campaign used to smoke-test the pipeline wiring
pirs:
  - text: Monitor pump efficiency ratings across major vendors
    priority: high
sourceCandidates:
  - host: www.sec.gov
    name: SEC EDGAR
`
