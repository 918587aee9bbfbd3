// Package campaign defines the strategic-context/PIR input shape and loads
// it from a YAML campaign-definition file, standing in for the dashboard/API
// that would otherwise produce this data.
package campaign

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Priority is a qualitative PIR priority label.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// PIR is a Priority Intelligence Requirement: a short natural-language
// description of what must be monitored.
type PIR struct {
	ID        string   `yaml:"id"`
	Text      string   `yaml:"text"`
	Priority  Priority `yaml:"priority,omitempty"`
	SessionID string   `yaml:"-"`
}

// Valid reports whether the PIR has nonempty text of at least 10 characters.
// PIRs that fail this are skipped rather than treated as fatal.
func (p PIR) Valid() bool {
	return len(strings.TrimSpace(p.Text)) >= 10
}

// SourceCandidate is an LLM- or operator-suggested source to validate during
// Source Discovery: a bare host to sweep, or a host plus a known feed URL to
// try directly first.
type SourceCandidate struct {
	Host    string `yaml:"host"`
	Name    string `yaml:"name"`
	FeedURL string `yaml:"feedUrl,omitempty"`
}

// Definition is a StrategicContext plus its PIRs, as read from a campaign
// file. SessionID identifies the campaign throughout persistence.
type Definition struct {
	SessionID        string            `yaml:"sessionId"`
	Objective        string            `yaml:"objective"`
	Background       string            `yaml:"background"`
	Decisions        []string          `yaml:"decisions"`
	PIRs             []PIR             `yaml:"pirs"`
	SourceCandidates []SourceCandidate `yaml:"sourceCandidates"`
}

// ErrEmptyContext is returned when the definition has neither an objective
// nor a background. The Orchestrator treats this as a hard error.
var ErrEmptyContext = fmt.Errorf("campaign: strategic context has no objective or background")

// ErrNoPIRs is returned when the definition has no usable PIRs.
// The Orchestrator treats this as a hard error.
var ErrNoPIRs = fmt.Errorf("campaign: no PIRs with usable text")

// Load reads and parses a campaign definition file, then applies the
// minimum-PIR-length invariant, dropping short PIRs rather than failing.
func Load(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("campaign: read %s: %w", path, err)
	}
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("campaign: parse %s: %w", path, err)
	}
	return sanitize(&def)
}

// Parse parses a campaign definition from raw YAML bytes (used by the
// self-test path to avoid a filesystem dependency).
func Parse(raw []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("campaign: parse: %w", err)
	}
	return sanitize(&def)
}

func sanitize(def *Definition) (*Definition, error) {
	if strings.TrimSpace(def.Objective) == "" && strings.TrimSpace(def.Background) == "" {
		return nil, ErrEmptyContext
	}
	kept := make([]PIR, 0, len(def.PIRs))
	for _, p := range def.PIRs {
		if !p.Valid() {
			continue
		}
		p.SessionID = def.SessionID
		kept = append(kept, p)
	}
	def.PIRs = kept
	if len(def.PIRs) == 0 {
		return nil, ErrNoPIRs
	}
	return def, nil
}
