package regression

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/serbench/trackoor/pkg/history"
)

// comparedMetrics are the metrics checked between comparable runs.
var comparedMetrics = []string{
	history.MetricLatencyMs,
	history.MetricThroughputOpsPerSec,
}

// Detector compares a newly recorded run against its most recent
// comparable predecessor and appends classified deltas to the alert
// log.
type Detector struct {
	log   logrus.FieldLogger
	store history.Store
	now   func() time.Time
}

// NewDetector creates a regression detector over the given store.
func NewDetector(log logrus.FieldLogger, store history.Store) *Detector {
	return &Detector{
		log:   log.WithField("component", "regression"),
		store: store,
		now:   time.Now,
	}
}

// Detect runs regression detection for a freshly recorded run and
// returns the alerts that were appended. The first run of a kind is a
// trivial baseline and produces no alerts. Alert writes are
// best-effort: an insert failure is logged and skipped, never rolled
// back into the caller's record path.
func (d *Detector) Detect(
	ctx context.Context, runID uint,
) ([]history.PerformanceAlert, error) {
	results, err := d.store.ResultsForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("fetching results for run %d: %w", runID, err)
	}

	prev, err := d.store.FindPreviousComparableRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	if prev == nil {
		d.log.WithField("run_id", runID).
			Debug("No comparable previous run, skipping detection")

		return nil, nil
	}

	var emitted []history.PerformanceAlert

	for i := range results {
		current := &results[i]

		previous, err := d.store.GetResult(
			ctx, prev.ID, current.Framework, current.ResultKind,
		)
		if err != nil {
			return emitted, err
		}

		// No baseline for this framework in the previous run: skip,
		// never flag as a zero-to-X regression.
		if previous == nil {
			continue
		}

		for _, metric := range comparedMetrics {
			cls := Classify(
				PolarityOf(metric),
				previous.MetricValue(metric),
				current.MetricValue(metric),
			)
			if cls == nil {
				continue
			}

			alert := history.PerformanceAlert{
				Timestamp:     d.now().UTC(),
				Framework:     current.Framework,
				AlertType:     cls.AlertType,
				Severity:      cls.Severity,
				Metric:        metric,
				OldValue:      *previous.MetricValue(metric),
				NewValue:      *current.MetricValue(metric),
				ChangePercent: cls.ChangePercent,
				Message: alertMessage(
					current.Framework, metric, cls,
				),
			}

			if err := d.store.InsertAlert(ctx, &alert); err != nil {
				d.log.WithError(err).
					WithField("framework", current.Framework).
					WithField("metric", metric).
					Warn("Failed to append alert")

				continue
			}

			d.logAlert(&alert)
			emitted = append(emitted, alert)
		}
	}

	return emitted, nil
}

// alertMessage renders the human-readable alert text.
func alertMessage(
	framework, metric string, cls *Classification,
) string {
	abs := math.Abs(cls.ChangePercent)

	switch metric {
	case history.MetricLatencyMs:
		if cls.AlertType == history.AlertRegression {
			return fmt.Sprintf(
				"%s latency increased by %.1f%%", framework, abs,
			)
		}

		return fmt.Sprintf("%s latency improved by %.1f%%", framework, abs)
	case history.MetricThroughputOpsPerSec:
		if cls.AlertType == history.AlertRegression {
			return fmt.Sprintf(
				"%s throughput decreased by %.1f%%", framework, abs,
			)
		}

		return fmt.Sprintf(
			"%s throughput increased by %.1f%%", framework, abs,
		)
	default:
		return fmt.Sprintf(
			"%s %s changed by %+.1f%%", framework, metric, cls.ChangePercent,
		)
	}
}

// logAlert logs an emitted alert at a level matching its severity.
func (d *Detector) logAlert(alert *history.PerformanceAlert) {
	entry := d.log.WithFields(logrus.Fields{
		"framework": alert.Framework,
		"metric":    alert.Metric,
		"change":    fmt.Sprintf("%+.1f%%", alert.ChangePercent),
		"severity":  alert.Severity,
	})

	switch alert.Severity {
	case history.SeverityCritical:
		entry.Error("Performance regression detected")
	case history.SeverityWarning:
		entry.Warn("Performance regression detected")
	default:
		entry.Info("Performance improvement detected")
	}
}
