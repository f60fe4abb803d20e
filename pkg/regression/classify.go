package regression

import (
	"github.com/serbench/trackoor/pkg/history"
)

// Fixed classification policy. The thresholds are deliberately not
// per-framework tunable; exposing them as configuration must not change
// the comparison semantics.
const (
	// RegressionThresholdPct is the absolute percentage change beyond
	// which a delta is classified as a regression or improvement
	// (strict inequality: exactly 10% is noise).
	RegressionThresholdPct = 10.0

	// CriticalThresholdPct escalates a regression from warning to
	// critical severity (strict inequality).
	CriticalThresholdPct = 25.0
)

// Polarity expresses which direction of change is good for a metric.
type Polarity int

const (
	// LowerIsBetter applies to latency-style metrics.
	LowerIsBetter Polarity = iota
	// HigherIsBetter applies to throughput-style metrics.
	HigherIsBetter
)

// PolarityOf returns the polarity convention for a metric name.
func PolarityOf(metric string) Polarity {
	switch metric {
	case history.MetricThroughputOpsPerSec,
		history.MetricSuccessRatePercent,
		history.MetricCompressionRatio:
		return HigherIsBetter
	default:
		return LowerIsBetter
	}
}

// Classification is the outcome of comparing one metric across two
// comparable runs.
type Classification struct {
	AlertType     string
	Severity      string
	ChangePercent float64
}

// Classify compares a metric value across two comparable runs and
// returns its classification, or nil when the delta is within the
// noise band or either side is unusable. It is a pure function of
// (polarity, previous, current): the same inputs always classify the
// same way.
//
// A nil or non-positive value on either side yields nil: "not
// measured" is never treated as a zero baseline, and a zero previous
// value would make the percentage undefined.
func Classify(polarity Polarity, previous, current *float64) *Classification {
	if previous == nil || current == nil {
		return nil
	}

	prev, cur := *previous, *current
	if prev <= 0 || cur <= 0 {
		return nil
	}

	change := (cur - prev) / prev * 100

	// Normalize so that positive always means "worse", then map the
	// original signed change back into the result.
	worse := change
	if polarity == HigherIsBetter {
		worse = -change
	}

	switch {
	case worse > RegressionThresholdPct:
		severity := history.SeverityWarning
		if worse > CriticalThresholdPct {
			severity = history.SeverityCritical
		}

		return &Classification{
			AlertType:     history.AlertRegression,
			Severity:      severity,
			ChangePercent: change,
		}
	case worse < -RegressionThresholdPct:
		return &Classification{
			AlertType:     history.AlertImprovement,
			Severity:      history.SeverityInfo,
			ChangePercent: change,
		}
	default:
		return nil
	}
}
