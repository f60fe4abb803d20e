package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/sirupsen/logrus"

	"github.com/serbench/trackoor/pkg/config"
	"github.com/serbench/trackoor/pkg/history"
	"github.com/serbench/trackoor/pkg/ingest"
	"github.com/serbench/trackoor/pkg/regression"
	"github.com/serbench/trackoor/pkg/trend"
	"github.com/serbench/trackoor/pkg/upload"
)

// Tracker owns the history store and coordinates recording, regression
// detection, trend analysis and optional summary uploads. Writes are
// serialized through a single mutex; reads go straight to the store and
// may run concurrently with a write.
type Tracker struct {
	log      logrus.FieldLogger
	cfg      *config.Config
	store    history.Store
	detector *regression.Detector
	analyzer *trend.Analyzer
	uploader upload.Uploader

	writeMu sync.Mutex
}

// RunSummary is the outcome of recording one results document. It is
// also the JSON document uploaded to remote storage when uploads are
// enabled.
type RunSummary struct {
	RunID                uint                       `json:"run_id"`
	Timestamp            string                     `json:"timestamp"`
	RunKind              string                     `json:"run_kind"`
	TotalFrameworks      int                        `json:"total_frameworks"`
	SuccessfulFrameworks int                        `json:"successful_frameworks"`
	Results              []history.FrameworkResult  `json:"results"`
	Alerts               []history.PerformanceAlert `json:"alerts"`
}

// New creates a tracker from the given configuration. Start must be
// called before any other method.
func New(log logrus.FieldLogger, cfg *config.Config) (*Tracker, error) {
	tlog := log.WithField("component", "tracker")

	store := history.NewStore(log, &cfg.Database)

	t := &Tracker{
		log:      tlog,
		cfg:      cfg,
		store:    store,
		detector: regression.NewDetector(log, store),
		analyzer: trend.NewAnalyzer(log, store),
	}

	if s3cfg := cfg.S3Upload(); s3cfg != nil {
		uploader, err := upload.NewS3Uploader(log, s3cfg)
		if err != nil {
			return nil, fmt.Errorf("creating s3 uploader: %w", err)
		}

		t.uploader = uploader
	}

	return t, nil
}

// Start opens the history database and, when uploads are configured,
// verifies the upload target is writable.
func (t *Tracker) Start(ctx context.Context) error {
	if err := t.store.Start(ctx); err != nil {
		return err
	}

	if t.uploader != nil {
		if err := t.uploader.Preflight(ctx); err != nil {
			return fmt.Errorf("upload preflight: %w", err)
		}
	}

	return nil
}

// Stop closes the history database.
func (t *Tracker) Stop() error {
	return t.store.Stop()
}

// Store exposes the underlying history store for read-only consumers.
func (t *Tracker) Store() history.Store {
	return t.store
}

// Record ingests one raw results document: parse, normalize, persist,
// then run regression detection against the previous comparable run.
// The run is durable once this returns without error; detection and
// upload failures are logged but never unwind the recorded run.
func (t *Tracker) Record(ctx context.Context, raw []byte) (*RunSummary, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	doc, err := ingest.Parse(raw)
	if err != nil {
		return nil, err
	}

	run, results := ingest.Normalize(doc)

	t.captureHostEnv(run)

	runID, err := t.store.InsertRun(ctx, run, results)
	if err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}

	t.log.WithFields(logrus.Fields{
		"run_id":     runID,
		"run_kind":   run.RunKind,
		"frameworks": run.TotalFrameworks,
	}).Info("Benchmark run recorded")

	summary := &RunSummary{
		RunID:                runID,
		Timestamp:            run.Timestamp,
		RunKind:              run.RunKind,
		TotalFrameworks:      run.TotalFrameworks,
		SuccessfulFrameworks: run.SuccessfulFrameworks,
		Results:              results,
	}

	alerts, err := t.detector.Detect(ctx, runID)
	if err != nil {
		t.log.WithError(err).WithField("run_id", runID).
			Warn("Regression detection failed, run is recorded")
	}

	summary.Alerts = alerts

	t.uploadSummary(ctx, summary)

	return summary, nil
}

// captureHostEnv annotates a run with the recording host's environment.
// Lookup failures leave the fields unset.
func (t *Tracker) captureHostEnv(run *history.BenchmarkRun) {
	if info, err := host.Info(); err == nil {
		run.Hostname = info.Hostname
	} else {
		t.log.WithError(err).Debug("Failed to read host info")
	}

	if count, err := cpu.Counts(true); err == nil {
		run.CPUCount = count
	} else {
		t.log.WithError(err).Debug("Failed to read cpu count")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		run.TotalMemoryBytes = vm.Total
	} else {
		t.log.WithError(err).Debug("Failed to read memory info")
	}
}

// uploadSummary publishes the run summary when an uploader is
// configured. Failures are logged only.
func (t *Tracker) uploadSummary(ctx context.Context, summary *RunSummary) {
	if t.uploader == nil {
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		t.log.WithError(err).Warn("Failed to marshal run summary")

		return
	}

	if err := t.uploader.UploadRunSummary(ctx, summary.RunID, data); err != nil {
		t.log.WithError(err).WithField("run_id", summary.RunID).
			Warn("Failed to upload run summary")
	}
}

// Runs lists recent runs, optionally restricted to runs containing the
// given framework.
func (t *Tracker) Runs(
	ctx context.Context, framework string, limit int,
) ([]history.BenchmarkRun, error) {
	return t.store.ListRuns(ctx, framework, limit)
}

// Results returns the per-framework rows recorded for a run.
func (t *Tracker) Results(
	ctx context.Context, runID uint,
) ([]history.FrameworkResult, error) {
	return t.store.ResultsForRun(ctx, runID)
}

// History returns a framework's results inside the trailing window.
func (t *Tracker) History(
	ctx context.Context, framework, since string,
) ([]history.HistoryPoint, error) {
	return t.store.FrameworkHistory(ctx, framework, since)
}

// Alerts lists recent alerts, optionally filtered by severity.
func (t *Tracker) Alerts(
	ctx context.Context, severity string, limit int,
) ([]history.PerformanceAlert, error) {
	return t.store.ListAlerts(ctx, severity, limit)
}

// Trend analyzes a framework's metric over the trailing window.
func (t *Tracker) Trend(
	ctx context.Context, framework, metric string, windowDays int,
) (*trend.Report, error) {
	return t.analyzer.Analyze(ctx, framework, metric, windowDays)
}

// Stats summarizes the history database.
func (t *Tracker) Stats(ctx context.Context) (*history.Stats, error) {
	return t.store.Stats(ctx)
}
