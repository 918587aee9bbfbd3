package persistence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/signalbridge/collector/internal/evaluator"
)

func TestDedupeKey_SamePIRAndURLCollide(t *testing.T) {
	assert.Equal(t, dedupeKey("pir-1", "https://example.com/a"), dedupeKey("pir-1", "https://example.com/a"))
	assert.NotEqual(t, dedupeKey("pir-1", "https://example.com/a"), dedupeKey("pir-2", "https://example.com/a"))
	assert.NotEqual(t, dedupeKey("pir-1", "https://example.com/a"), dedupeKey("pir-1", "https://example.com/b"))
}

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cutoff := retentionCutoff(now, 30*24*time.Hour)
	assert.Equal(t, time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC), cutoff)
}

func TestRawSignalMeta_OmitsReasoning(t *testing.T) {
	eval := evaluator.Evaluation{
		Score:     0.8,
		Decision:  "include",
		Reasoning: "this reveals a supply chain shift that matters for the PIR",
		Urgency:   "high",
	}

	stripped := rawSignalMeta(eval)
	assert.Empty(t, stripped.Reasoning)
	assert.Equal(t, eval.Score, stripped.Score)
	assert.Equal(t, eval.Urgency, stripped.Urgency)

	raw, err := json.Marshal(stripped)
	assert.NoError(t, err)
	assert.NotContains(t, string(raw), "supply chain shift")
}
