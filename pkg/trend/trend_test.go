package trend_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serbench/trackoor/pkg/config"
	"github.com/serbench/trackoor/pkg/history"
	"github.com/serbench/trackoor/pkg/trend"
)

func setupAnalyzer(t *testing.T) (history.Store, *trend.Analyzer) {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:"},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := history.NewStore(log, cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s, trend.NewAnalyzer(log, s)
}

// insertSeries records one run per value, spaced an hour apart ending
// just before now, so every point falls inside any day-sized window.
func insertSeries(
	t *testing.T, s history.Store, framework, metric string, values []float64,
) {
	t.Helper()

	base := time.Now().UTC().Add(-time.Duration(len(values)) * time.Hour)

	for i, v := range values {
		value := v
		result := history.FrameworkResult{
			Framework:  framework,
			ResultKind: history.ResultIntegration,
		}

		switch metric {
		case history.MetricLatencyMs:
			result.LatencyMs = &value
		case history.MetricThroughputOpsPerSec:
			result.ThroughputOpsPerSec = &value
		default:
			t.Fatalf("unsupported metric in helper: %s", metric)
		}

		_, err := s.InsertRun(context.Background(), &history.BenchmarkRun{
			Timestamp: base.Add(time.Duration(i) * time.Hour).
				Format(time.RFC3339),
			RunKind: history.KindIntegration,
		}, []history.FrameworkResult{result})
		require.NoError(t, err)
	}
}

func TestAnalyze_LatencyWorsening(t *testing.T) {
	s, a := setupAnalyzer(t)

	insertSeries(t, s, "jackson", history.MetricLatencyMs,
		[]float64{10, 10, 10, 20, 20, 20})

	report, err := a.Analyze(
		context.Background(), "jackson", history.MetricLatencyMs, 30,
	)
	require.NoError(t, err)

	assert.Equal(t, 6, report.Count)
	assert.InDelta(t, 15, report.Mean, 1e-9)
	assert.Equal(t, 10.0, report.Min)
	assert.Equal(t, 20.0, report.Max)
	assert.Equal(t, 20.0, report.Latest)
	assert.InDelta(t, 100, report.ChangePercent, 1e-9)
	assert.Equal(t, trend.DirectionWorsening, report.Direction)
}

func TestAnalyze_ThroughputRisingIsImproving(t *testing.T) {
	s, a := setupAnalyzer(t)

	insertSeries(t, s, "protobuf", history.MetricThroughputOpsPerSec,
		[]float64{1000, 1000, 1500, 1500})

	report, err := a.Analyze(
		context.Background(), "protobuf",
		history.MetricThroughputOpsPerSec, 30,
	)
	require.NoError(t, err)

	assert.Equal(t, trend.DirectionImproving, report.Direction)
	assert.InDelta(t, 50, report.ChangePercent, 1e-9)
}

func TestAnalyze_StableWithinBand(t *testing.T) {
	s, a := setupAnalyzer(t)

	insertSeries(t, s, "avro", history.MetricLatencyMs,
		[]float64{100, 101, 102, 103})

	report, err := a.Analyze(
		context.Background(), "avro", history.MetricLatencyMs, 30,
	)
	require.NoError(t, err)

	assert.Equal(t, trend.DirectionStable, report.Direction)
}

func TestAnalyze_SinglePointHasNoDirection(t *testing.T) {
	s, a := setupAnalyzer(t)

	insertSeries(t, s, "kryo", history.MetricLatencyMs, []float64{10})

	report, err := a.Analyze(
		context.Background(), "kryo", history.MetricLatencyMs, 30,
	)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Count)
	assert.Equal(t, 10.0, report.Latest)
	assert.Empty(t, report.Direction,
		"a single point cannot be split into halves")
}

func TestAnalyze_EmptyWindow(t *testing.T) {
	s, a := setupAnalyzer(t)
	ctx := context.Background()

	// A run well outside any 30-day window.
	_, err := s.InsertRun(ctx, &history.BenchmarkRun{
		Timestamp: "2020-01-01T00:00:00Z",
		RunKind:   history.KindIntegration,
	}, []history.FrameworkResult{
		{
			Framework:  "thrift",
			ResultKind: history.ResultIntegration,
			LatencyMs:  func() *float64 { v := 10.0; return &v }(),
		},
	})
	require.NoError(t, err)

	_, err = a.Analyze(ctx, "thrift", history.MetricLatencyMs, 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, trend.ErrNoData)

	// Unknown frameworks behave identically.
	_, err = a.Analyze(ctx, "no-such-framework", history.MetricLatencyMs, 30)
	assert.ErrorIs(t, err, trend.ErrNoData)
}

func TestAnalyze_UnmeasuredRowsDoNotContribute(t *testing.T) {
	s, a := setupAnalyzer(t)
	ctx := context.Background()

	insertSeries(t, s, "cbor", history.MetricLatencyMs, []float64{10, 12})

	// A row that measured throughput but not latency.
	_, err := s.InsertRun(ctx, &history.BenchmarkRun{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RunKind:   history.KindIntegration,
	}, []history.FrameworkResult{
		{
			Framework:  "cbor",
			ResultKind: history.ResultIntegration,
			ThroughputOpsPerSec: func() *float64 {
				v := 900.0

				return &v
			}(),
		},
	})
	require.NoError(t, err)

	report, err := a.Analyze(ctx, "cbor", history.MetricLatencyMs, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count)
}

func TestAnalyze_UnknownMetric(t *testing.T) {
	_, a := setupAnalyzer(t)

	_, err := a.Analyze(
		context.Background(), "jackson", "vibes_per_second", 30,
	)
	require.Error(t, err)
}
