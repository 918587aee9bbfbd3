package planner

import "math"

// CollectionParams is the deterministic numeric derivation from a Strategy
// and PIR count. The formulas below must be reproduced exactly: the tier
// tables and multipliers are a fixed contract, not tunable defaults.
type CollectionParams struct {
	MaxDocsPerPir    int
	Threshold        float64
	TimeoutSeconds   int
	EvalBatchSize    int
	MaxSignalsPerPir int
}

// DeriveParams is pure and deterministic: identical (Strategy, pirCount)
// inputs always yield identical CollectionParams.
func DeriveParams(s Strategy, pirCount int) CollectionParams {
	return CollectionParams{
		MaxDocsPerPir:    deriveMaxDocsPerPir(s.Intensity, pirCount),
		Threshold:        deriveThreshold(s.Selectivity, s.Urgency),
		TimeoutSeconds:   deriveTimeoutSeconds(s.Urgency, s.Intensity),
		EvalBatchSize:    deriveEvalBatchSize(s.Intensity),
		MaxSignalsPerPir: deriveMaxSignalsPerPir(s.Intensity),
	}
}

func deriveMaxDocsPerPir(intensity string, pirCount int) int {
	base := map[string]int{
		"light":         200,
		"standard":      500,
		"intensive":     1000,
		"comprehensive": 2000,
	}[intensity]
	if base == 0 {
		base = 500
	}
	if pirCount > 5 {
		scale := 1 - 0.1*float64(pirCount-5)
		if scale < 0.5 {
			scale = 0.5
		}
		return int(float64(base) * scale)
	}
	return base
}

func deriveThreshold(selectivity, urgency string) float64 {
	t := map[string]float64{
		"very_selective": 0.70,
		"selective":       0.50,
		"balanced":        0.30,
		"inclusive":       0.15,
	}[selectivity]
	if t == 0 {
		t = 0.30
	}
	switch urgency {
	case "crisis":
		t *= 0.7
	case "long_term":
		t *= 1.2
	}
	if t < 0.10 {
		t = 0.10
	}
	if t > 0.80 {
		t = 0.80
	}
	return t
}

func deriveTimeoutSeconds(urgency, intensity string) int {
	t := map[string]int{
		"crisis":    180,
		"strategic": 300,
		"long_term": 450,
	}[urgency]
	if t == 0 {
		t = 300
	}
	switch intensity {
	case "comprehensive":
		t = int(math.Round(float64(t) * 1.5))
	case "light":
		t = int(math.Round(float64(t) * 0.7))
	}
	return t
}

func deriveEvalBatchSize(intensity string) int {
	v := map[string]int{
		"light":         20,
		"standard":      30,
		"intensive":     50,
		"comprehensive": 100,
	}[intensity]
	if v == 0 {
		v = 30
	}
	return v
}

func deriveMaxSignalsPerPir(intensity string) int {
	v := map[string]int{
		"light":         15,
		"standard":      25,
		"intensive":     50,
		"comprehensive": 100,
	}[intensity]
	if v == 0 {
		v = 25
	}
	return v
}
