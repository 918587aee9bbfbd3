package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads a .env file into the process environment if present,
// without overriding variables already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// FromEnv builds a Config purely from environment variables, applying
// defaults only where a variable is unset.
func FromEnv() *Config {
	cfg := &Config{}
	ApplyEnvToConfig(cfg)
	return cfg
}

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values (e.g. already set by a campaign/config file) take
// precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = os.Getenv("LLM_BASE_URL")
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = os.Getenv("LLM_MODEL")
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	}
	if cfg.SearchAPIURL == "" {
		cfg.SearchAPIURL = os.Getenv("SEARCH_API_URL")
	}
	if cfg.SearchAPIKey == "" {
		cfg.SearchAPIKey = os.Getenv("SEARCH_API_KEY")
	}
	if cfg.FilingUserAgent == "" {
		cfg.FilingUserAgent = os.Getenv("FILING_USER_AGENT")
	}
	if cfg.CampaignPath == "" {
		cfg.CampaignPath = os.Getenv("CAMPAIGN_PATH")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = os.Getenv("CACHE_DIR")
	}
	if cfg.ReportPath == "" {
		cfg.ReportPath = os.Getenv("REPORT_PATH")
	}
	if cfg.FilingLookBackDays == 0 {
		if n, err := strconv.Atoi(os.Getenv("FILING_LOOKBACK_DAYS")); err == nil && n > 0 {
			cfg.FilingLookBackDays = n
		}
	}
	if cfg.FeedEntryRetention == 0 {
		if n, err := strconv.Atoi(os.Getenv("FEED_ENTRY_RETENTION")); err == nil && n > 0 {
			cfg.FeedEntryRetention = n
		}
	}
	if cfg.SignalRetention == 0 {
		if s := os.Getenv("SIGNAL_RETENTION_DAYS"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				cfg.SignalRetention = time.Duration(n) * 24 * time.Hour
			}
		}
	}

	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			if s == "1" || s == "true" || s == "yes" || s == "on" {
				*dst = true
			}
		}
	}
	setBool(&cfg.SelfTest, "SELF_TEST")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.FetchFilingBodies, "FETCH_FILING_BODIES")

	if cfg.FilingLookBackDays == 0 {
		cfg.FilingLookBackDays = 7
	}
	if cfg.FeedEntryRetention == 0 {
		cfg.FeedEntryRetention = 500
	}
	if cfg.SignalRetention == 0 {
		cfg.SignalRetention = 30 * 24 * time.Hour
	}
	if cfg.FilingUserAgent == "" {
		cfg.FilingUserAgent = "SignalCollector/1.0 (contact: ops@signalbridge.example)"
	}
}
