package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalbridge/collector/internal/orchestrator"
)

func TestWritePDF_ProducesNonEmptyFile(t *testing.T) {
	summary := orchestrator.CampaignSummary{
		SessionID:  "session-1",
		State:      orchestrator.StateDone,
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
		PerPIR: []orchestrator.PIRSummary{
			{PIRID: "pir-1", DocumentsFetched: 10, SignalsCreated: 2, Errors: map[string]int{"FetchError": 1}},
		},
		CrossPIRBrief: "Cross-cutting theme observed.",
	}

	outPath := filepath.Join(t.TempDir(), "summary.pdf")
	if err := WritePDF(summary, outPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty PDF output")
	}
}
