package regression_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serbench/trackoor/pkg/config"
	"github.com/serbench/trackoor/pkg/history"
	"github.com/serbench/trackoor/pkg/regression"
)

func setupDetector(t *testing.T) (history.Store, *regression.Detector) {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:"},
	}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	s := history.NewStore(log, cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s, regression.NewDetector(log, s)
}

func insertLatencyRun(
	t *testing.T, s history.Store, framework string, latency float64,
) uint {
	t.Helper()

	id, err := s.InsertRun(context.Background(), &history.BenchmarkRun{
		Timestamp: "2026-08-30T12:00:00Z",
		RunKind:   history.KindIntegration,
	}, []history.FrameworkResult{
		{
			Framework:  framework,
			ResultKind: history.ResultIntegration,
			LatencyMs:  &latency,
		},
	})
	require.NoError(t, err)

	return id
}

func TestDetector_FirstRunEmitsNoAlerts(t *testing.T) {
	s, d := setupDetector(t)

	runID := insertLatencyRun(t, s, "jackson", 10)

	alerts, err := d.Detect(context.Background(), runID)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestDetector_LatencyRegressionWarning(t *testing.T) {
	s, d := setupDetector(t)

	insertLatencyRun(t, s, "jackson", 10)
	runB := insertLatencyRun(t, s, "jackson", 13)

	alerts, err := d.Detect(context.Background(), runB)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, "jackson", a.Framework)
	assert.Equal(t, history.MetricLatencyMs, a.Metric)
	assert.Equal(t, history.AlertRegression, a.AlertType)
	assert.Equal(t, history.SeverityWarning, a.Severity)
	assert.InDelta(t, 30, a.ChangePercent, 1e-9)
	assert.Equal(t, 10.0, a.OldValue)
	assert.Equal(t, 13.0, a.NewValue)
	assert.Equal(t, "jackson latency increased by 30.0%", a.Message)

	// The alert is durably queryable.
	stored, err := s.ListAlerts(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestDetector_ExactTenPercentImprovementIsNoise(t *testing.T) {
	s, d := setupDetector(t)

	insertLatencyRun(t, s, "jackson", 10)
	runB := insertLatencyRun(t, s, "jackson", 9)

	alerts, err := d.Detect(context.Background(), runB)
	require.NoError(t, err)
	assert.Empty(t, alerts, "-10% exactly is not strictly below the threshold")
}

func TestDetector_LatencyImprovement(t *testing.T) {
	s, d := setupDetector(t)

	insertLatencyRun(t, s, "jackson", 10)
	runB := insertLatencyRun(t, s, "jackson", 8)

	alerts, err := d.Detect(context.Background(), runB)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	assert.Equal(t, history.AlertImprovement, alerts[0].AlertType)
	assert.Equal(t, history.SeverityInfo, alerts[0].Severity)
	assert.InDelta(t, -20, alerts[0].ChangePercent, 1e-9)
	assert.Equal(t, "jackson latency improved by 20.0%", alerts[0].Message)
}

func TestDetector_ThroughputCriticalRegression(t *testing.T) {
	s, d := setupDetector(t)
	ctx := context.Background()

	insert := func(throughput float64) uint {
		id, err := s.InsertRun(ctx, &history.BenchmarkRun{
			Timestamp: "2026-08-30T12:00:00Z",
			RunKind:   history.KindMicrobenchmark,
		}, []history.FrameworkResult{
			{
				Framework:           "protobuf",
				ResultKind:          history.ResultMicrobenchmark,
				ThroughputOpsPerSec: &throughput,
			},
		})
		require.NoError(t, err)

		return id
	}

	insert(1000)
	runB := insert(700)

	alerts, err := d.Detect(ctx, runB)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, history.MetricThroughputOpsPerSec, a.Metric)
	assert.Equal(t, history.AlertRegression, a.AlertType)
	assert.Equal(t, history.SeverityCritical, a.Severity)
	assert.InDelta(t, -30, a.ChangePercent, 1e-9)
	assert.Equal(t, "protobuf throughput decreased by 30.0%", a.Message)
}

func TestDetector_ComparableRunSelectionSkipsOtherKinds(t *testing.T) {
	s, d := setupDetector(t)
	ctx := context.Background()

	lat := func(v float64) *float64 { return &v }

	// Run 1: integration, latency 10.
	insertLatencyRun(t, s, "jackson", 10)

	// Run 2: microbenchmark, wildly different latency. Must not be the
	// baseline for run 3.
	_, err := s.InsertRun(ctx, &history.BenchmarkRun{
		Timestamp: "2026-08-30T12:00:00Z",
		RunKind:   history.KindMicrobenchmark,
	}, []history.FrameworkResult{
		{
			Framework:  "jackson",
			ResultKind: history.ResultMicrobenchmark,
			LatencyMs:  lat(1000),
		},
	})
	require.NoError(t, err)

	// Run 3: integration, latency 13, +30% against run 1.
	runC := insertLatencyRun(t, s, "jackson", 13)

	alerts, err := d.Detect(ctx, runC)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 10.0, alerts[0].OldValue)
}

func TestDetector_MissingFrameworkBaselineIsSkipped(t *testing.T) {
	s, d := setupDetector(t)

	insertLatencyRun(t, s, "jackson", 10)
	runB := insertLatencyRun(t, s, "brand-new-framework", 500)

	alerts, err := d.Detect(context.Background(), runB)
	require.NoError(t, err)
	assert.Empty(t, alerts,
		"frameworks without a prior record are skipped, not flagged")
}

func TestDetector_UnmeasuredMetricNeverAlerts(t *testing.T) {
	s, d := setupDetector(t)
	ctx := context.Background()

	// Previous run measured latency; current run did not.
	insertLatencyRun(t, s, "jackson", 10)

	runB, err := s.InsertRun(ctx, &history.BenchmarkRun{
		Timestamp: "2026-08-30T12:00:00Z",
		RunKind:   history.KindIntegration,
	}, []history.FrameworkResult{
		{
			Framework:  "jackson",
			ResultKind: history.ResultIntegration,
		},
	})
	require.NoError(t, err)

	alerts, err := d.Detect(ctx, runB)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
