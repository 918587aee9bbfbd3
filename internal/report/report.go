// Package report implements the optional CampaignSummary PDF export: one
// page of campaign metadata followed by one row per PIR, and the cross-PIR
// brief when present, rendered line-by-line with gofpdf.
package report

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/signalbridge/collector/internal/orchestrator"
)

// WritePDF renders a CampaignSummary to outPath as a simple A4 PDF. Skipped
// entirely by callers unless a report path is configured; has no effect on
// collection/evaluation semantics.
func WritePDF(summary orchestrator.CampaignSummary, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(190, 10, "Campaign Summary")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(190, 7, fmt.Sprintf("Session: %s", summary.SessionID))
	pdf.Ln(7)
	pdf.Cell(190, 7, fmt.Sprintf("State: %s", summary.State))
	pdf.Ln(7)
	pdf.Cell(190, 7, fmt.Sprintf("Started: %s", summary.StartedAt.Format("2006-01-02 15:04:05 MST")))
	pdf.Ln(7)
	pdf.Cell(190, 7, fmt.Sprintf("Finished: %s", summary.FinishedAt.Format("2006-01-02 15:04:05 MST")))
	pdf.Ln(7)
	pdf.Cell(190, 7, fmt.Sprintf("Partial: %t", summary.Partial))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(190, 8, "Per-PIR results")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	for _, p := range summary.PerPIR {
		pdf.Cell(190, 6, fmt.Sprintf("PIR %s — documents: %d, signals: %d", p.PIRID, p.DocumentsFetched, p.SignalsCreated))
		pdf.Ln(6)
		for kind, count := range p.Errors {
			if count == 0 {
				continue
			}
			pdf.Cell(190, 6, fmt.Sprintf("  %s: %d", kind, count))
			pdf.Ln(6)
		}
	}

	if summary.CrossPIRBrief != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(190, 8, "Cross-PIR brief")
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(190, 6, summary.CrossPIRBrief, "", "", false)
	}

	return pdf.OutputFileAndClose(outPath)
}
