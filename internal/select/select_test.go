package selecter

import (
	"strings"
	"testing"

	"github.com/signalbridge/collector/internal/document"
)

func TestSelect_PerDomainCap(t *testing.T) {
	in := []document.Document{
		{Title: "a1", URL: "https://a.com/1", Body: "x"},
		{Title: "a2", URL: "https://a.com/2", Body: "xx"},
		{Title: "a3", URL: "https://a.com/3", Body: "xxx"},
		{Title: "b1", URL: "https://b.com/1", Body: "xxxx"},
		{Title: "b2", URL: "https://b.com/2", Body: "xxxxx"},
	}
	out := Select(in, Options{MaxTotal: 10, PerDomain: 2})
	var countA, countB int
	for _, d := range out {
		if strings.HasPrefix(d.URL, "https://a.com") {
			countA++
		}
		if strings.HasPrefix(d.URL, "https://b.com") {
			countB++
		}
	}
	if countA > 2 || countB > 2 {
		t.Fatalf("per-domain cap exceeded: a=%d b=%d", countA, countB)
	}
}
