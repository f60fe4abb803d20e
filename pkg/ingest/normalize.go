package ingest

import (
	"strings"
	"time"

	"github.com/serbench/trackoor/pkg/history"
)

// operationPriority is the fixed preference order for picking one
// microbenchmark operation per framework.
var operationPriority = []string{"roundtrip", "serialize"}

// Normalize converts a classified document into a run record and its
// per-framework result rows. Within one run at most one row exists per
// (framework, result kind) pair.
func Normalize(doc *Document) (*history.BenchmarkRun, []history.FrameworkResult) {
	run := &history.BenchmarkRun{
		Timestamp:       doc.Metadata.Timestamp,
		RunKind:         doc.Kind,
		DurationSeconds: doc.Metadata.DurationSeconds,
	}

	if run.Timestamp == "" {
		run.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	results := make([]history.FrameworkResult, 0,
		len(doc.Microbench)+len(doc.Integration))

	frameworks := make(map[string]struct{})
	successful := make(map[string]struct{})

	for framework, ops := range doc.Microbench {
		r := normalizeMicrobench(framework, ops)
		results = append(results, r)
		frameworks[framework] = struct{}{}

		if r.LatencyMs != nil || r.ThroughputOpsPerSec != nil {
			successful[framework] = struct{}{}
		}
	}

	for key, fw := range doc.Integration {
		r := normalizeIntegration(key, fw)
		results = append(results, r)
		frameworks[r.Framework] = struct{}{}

		if fw.Summary.SuccessfulTests > 0 {
			successful[r.Framework] = struct{}{}
		}
	}

	run.TotalFrameworks = len(frameworks)
	run.SuccessfulFrameworks = len(successful)

	return run, results
}

// normalizeMicrobench flattens one framework's operation map into a
// single microbenchmark result row using the fixed operation priority.
func normalizeMicrobench(
	framework string, ops MicrobenchFramework,
) history.FrameworkResult {
	r := history.FrameworkResult{
		Framework:  framework,
		ResultKind: history.ResultMicrobenchmark,
	}

	for _, name := range operationPriority {
		op, ok := ops[name]
		if !ok {
			continue
		}

		r.LatencyMs, r.ThroughputOpsPerSec = opMetrics(op)
		r.SerializedSizeBytes = op.SerializedSizeBytes
		r.CompressionRatio = op.CompressionRatio

		break
	}

	return r
}

// opMetrics resolves an operation's latency and throughput. Explicit
// fields win; otherwise a raw score is interpreted via its unit tag,
// converting throughput scores to latency with 1000/score.
func opMetrics(op MicrobenchOp) (latency, throughput *float64) {
	latency = op.LatencyMs
	throughput = op.ThroughputOpsPerSec

	if latency != nil || throughput != nil || op.Score == nil {
		return latency, throughput
	}

	score := *op.Score

	switch strings.ToLower(op.Unit) {
	case "ops/s", "ops/sec", "op/s", "operations/second":
		throughput = &score

		if score > 0 {
			lat := 1000 / score
			latency = &lat
		}
	case "ms", "ms/op":
		latency = &score
	case "us", "us/op":
		lat := score / 1e3
		latency = &lat
	case "ns", "ns/op":
		lat := score / 1e6
		latency = &lat
	case "s", "s/op":
		lat := score * 1e3
		latency = &lat
	}

	return latency, throughput
}

// normalizeIntegration reduces one framework's integration section to
// a single result row anchored on the canonical MEDIUM scenario.
func normalizeIntegration(
	key string, fw IntegrationFramework,
) history.FrameworkResult {
	name := fw.Name
	if name == "" {
		name = key
	}

	r := history.FrameworkResult{
		Framework:          name,
		ResultKind:         history.ResultIntegration,
		SuccessRatePercent: fw.Summary.OverallSuccessRate,
	}

	medium, ok := fw.Scenarios[canonicalScenario]
	if ok {
		r.LatencyMs = medium.Summary.AvgResponseTimeMs
		r.P50Ms = medium.Summary.Percentiles.P50Ms
		r.P95Ms = medium.Summary.Percentiles.P95Ms
		r.P99Ms = medium.Summary.Percentiles.P99Ms
	}

	// Older producers only report a framework-level average.
	if r.LatencyMs == nil {
		r.LatencyMs = fw.Summary.AvgResponseTimeMs
	}

	return r
}
