package aggregate

import (
	"testing"

	"github.com/signalbridge/collector/internal/document"
)

func TestMergeAndNormalize_Dedup_TrimUTM(t *testing.T) {
	groups := [][]document.Document{
		{
			{Title: "A", URL: "https://example.com/page?utm_source=x&utm_medium=y", Body: "one"},
		},
		{
			{Title: "A dup", URL: "https://EXAMPLE.com/page", Body: "two"},
		},
	}
	out := MergeAndNormalize(groups)
	if len(out) != 1 {
		t.Fatalf("expected 1 after dedup, got %d", len(out))
	}
	if out[0].URL != "https://example.com/page" {
		t.Fatalf("unexpected normalized url: %q", out[0].URL)
	}
}
