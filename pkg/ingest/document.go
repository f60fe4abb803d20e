package ingest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/serbench/trackoor/pkg/history"
)

// ErrMalformedInput is returned when the raw document cannot be parsed
// as JSON at all. Anything that parses is recorded, in the worst case
// as an unknown-kind run with zero result rows.
var ErrMalformedInput = errors.New("malformed results document")

// Top-level document keys. The microbenchmark section has two accepted
// spellings, one per producer API generation.
const (
	keyMicrobenchResults = "microbenchmark_results"
	keyJMHResults        = "jmh_results"
	keyIntegration       = "results"
	keyMetadata          = "metadata"
)

// canonicalScenario is the scenario used as the stable basis for
// cross-run comparison. Other scenarios in the raw document are
// ignored for regression detection.
const canonicalScenario = "MEDIUM"

// Document is a classified benchmark-results document. Exactly the
// sections implied by Kind are populated; an unknown document carries
// neither.
type Document struct {
	Kind        string
	Metadata    Metadata
	Microbench  map[string]MicrobenchFramework
	Integration map[string]IntegrationFramework
}

// Metadata carries producer-supplied run-level fields.
type Metadata struct {
	Timestamp       string  `json:"timestamp"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// MicrobenchFramework maps operation names (roundtrip, serialize, ...)
// to their measurements.
type MicrobenchFramework map[string]MicrobenchOp

// MicrobenchOp is one operation's measurement. Producers either report
// explicit latency/throughput fields or a raw score with a unit tag.
type MicrobenchOp struct {
	Score               *float64 `json:"score"`
	Unit                string   `json:"unit"`
	LatencyMs           *float64 `json:"latency_ms"`
	ThroughputOpsPerSec *float64 `json:"throughput_ops_per_sec"`
	SerializedSizeBytes *int64   `json:"serialized_size_bytes"`
	CompressionRatio    *float64 `json:"compression_ratio"`
}

// IntegrationFramework is one framework's integration-test section.
type IntegrationFramework struct {
	Name      string              `json:"name"`
	Summary   IntegrationSummary  `json:"summary"`
	Scenarios map[string]Scenario `json:"scenarios"`
}

// IntegrationSummary aggregates a framework's integration results.
type IntegrationSummary struct {
	AvgResponseTimeMs  *float64 `json:"avg_response_time_ms"`
	OverallSuccessRate *float64 `json:"overall_success_rate"`
	SuccessfulTests    int      `json:"successful_tests"`
}

// Scenario is one complexity scenario within an integration run.
type Scenario struct {
	Summary ScenarioSummary `json:"summary"`
}

// ScenarioSummary carries a scenario's latency summary and percentiles.
type ScenarioSummary struct {
	AvgResponseTimeMs *float64    `json:"avg_response_time_ms"`
	Percentiles       Percentiles `json:"percentiles"`
}

// Percentiles is a scenario's latency percentile block.
type Percentiles struct {
	P50Ms *float64 `json:"p50_ms"`
	P95Ms *float64 `json:"p95_ms"`
	P99Ms *float64 `json:"p99_ms"`
}

// Parse classifies a raw results document into a Document. Only
// documents that fail JSON parsing are rejected; recognized sections
// with unusable contents degrade to empty sections, never to an error.
func Parse(raw []byte) (*Document, error) {
	var top map[string]any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	doc := &Document{}

	microRaw, hasMicro := top[keyMicrobenchResults]
	if !hasMicro {
		microRaw, hasMicro = top[keyJMHResults]
	}

	integRaw, hasInteg := top[keyIntegration]

	switch {
	case hasMicro && hasInteg:
		doc.Kind = history.KindCombined
	case hasMicro:
		doc.Kind = history.KindMicrobenchmark
	case hasInteg:
		doc.Kind = history.KindIntegration
	default:
		doc.Kind = history.KindUnknown
	}

	if meta, ok := top[keyMetadata]; ok {
		// Decode failures leave the zero metadata; the run still records.
		_ = decode(meta, &doc.Metadata)
	}

	if hasMicro {
		doc.Microbench = decodeFrameworks[MicrobenchFramework](microRaw)
	}

	if hasInteg {
		doc.Integration = decodeFrameworks[IntegrationFramework](integRaw)
	}

	return doc, nil
}

// decodeFrameworks decodes a per-framework section, skipping individual
// frameworks whose entries cannot be decoded.
func decodeFrameworks[T any](raw any) map[string]T {
	section, ok := raw.(map[string]any)
	if !ok {
		return map[string]T{}
	}

	out := make(map[string]T, len(section))

	for framework, entry := range section {
		var decoded T
		if err := decode(entry, &decoded); err != nil {
			continue
		}

		out[framework] = decoded
	}

	return out
}

// decode maps a loosely-typed JSON value onto a typed struct. Weak
// typing tolerates producers that emit integers where floats are
// expected and vice versa.
func decode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return err
	}

	return dec.Decode(in)
}
