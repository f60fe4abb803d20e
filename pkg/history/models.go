package history

import "time"

// Run kinds. A run's kind determines which prior runs it can be
// compared against.
const (
	KindMicrobenchmark = "microbenchmark"
	KindIntegration    = "integration"
	KindCombined       = "combined"
	KindUnknown        = "unknown"
)

// Result kinds. A combined run may carry one result of each kind per
// framework; the two kinds are never compared against each other.
const (
	ResultMicrobenchmark = "microbenchmark"
	ResultIntegration    = "integration"
)

// Alert types.
const (
	AlertRegression  = "regression"
	AlertImprovement = "improvement"
	AlertAnomaly     = "anomaly"
)

// Alert severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Metric column names as used in alerts and trend queries.
const (
	MetricLatencyMs           = "latency_ms"
	MetricThroughputOpsPerSec = "throughput_ops_per_sec"
	MetricSuccessRatePercent  = "success_rate_percent"
	MetricSerializedSizeBytes = "serialized_size_bytes"
	MetricCompressionRatio    = "compression_ratio"
	MetricP50Ms               = "p50_ms"
	MetricP95Ms               = "p95_ms"
	MetricP99Ms               = "p99_ms"
)

// BenchmarkRun represents one ingested benchmark-results document.
// The auto-increment ID is the ordering key for comparable-run
// selection; the producer-supplied timestamp is only used for
// time-window queries.
type BenchmarkRun struct {
	ID                   uint   `gorm:"primaryKey" json:"id"`
	Timestamp            string `gorm:"not null;index" json:"timestamp"`
	RunKind              string `gorm:"not null;index" json:"run_kind"`
	TotalFrameworks      int    `json:"total_frameworks"`
	SuccessfulFrameworks int    `json:"successful_frameworks"`
	DurationSeconds      float64 `json:"duration_seconds,omitempty"`

	// Host environment captured at record time, informational only.
	Hostname         string `json:"hostname,omitempty"`
	CPUCount         int    `json:"cpu_count,omitempty"`
	TotalMemoryBytes uint64 `json:"total_memory_bytes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// FrameworkResult is one framework's measurement within one run.
// Numeric fields are pointers: nil means "not measured" and is never
// conflated with a measured zero.
type FrameworkResult struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	RunID      uint   `gorm:"not null;index:idx_results_run_framework" json:"run_id"`
	Framework  string `gorm:"not null;index:idx_results_run_framework" json:"framework"`
	ResultKind string `gorm:"not null" json:"result_kind"`

	LatencyMs           *float64 `json:"latency_ms,omitempty"`
	ThroughputOpsPerSec *float64 `json:"throughput_ops_per_sec,omitempty"`
	SuccessRatePercent  *float64 `json:"success_rate_percent,omitempty"`
	SerializedSizeBytes *int64   `json:"serialized_size_bytes,omitempty"`
	CompressionRatio    *float64 `json:"compression_ratio,omitempty"`
	P50Ms               *float64 `json:"p50_ms,omitempty"`
	P95Ms               *float64 `json:"p95_ms,omitempty"`
	P99Ms               *float64 `json:"p99_ms,omitempty"`
}

// MetricValue returns the value of the named metric, or nil when the
// metric is unknown or was not measured.
func (r *FrameworkResult) MetricValue(metric string) *float64 {
	switch metric {
	case MetricLatencyMs:
		return r.LatencyMs
	case MetricThroughputOpsPerSec:
		return r.ThroughputOpsPerSec
	case MetricSuccessRatePercent:
		return r.SuccessRatePercent
	case MetricSerializedSizeBytes:
		if r.SerializedSizeBytes == nil {
			return nil
		}

		v := float64(*r.SerializedSizeBytes)

		return &v
	case MetricCompressionRatio:
		return r.CompressionRatio
	case MetricP50Ms:
		return r.P50Ms
	case MetricP95Ms:
		return r.P95Ms
	case MetricP99Ms:
		return r.P99Ms
	default:
		return nil
	}
}

// PerformanceAlert is one classified metric delta between two
// comparable runs. Values are denormalized so alerts stay valid even
// if the underlying result rows are pruned by retention tooling.
type PerformanceAlert struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp"`
	Framework     string    `gorm:"not null;index" json:"framework"`
	AlertType     string    `gorm:"not null" json:"alert_type"`
	Severity      string    `gorm:"not null;index" json:"severity"`
	Metric        string    `gorm:"not null" json:"metric"`
	OldValue      float64   `json:"old_value"`
	NewValue      float64   `json:"new_value"`
	ChangePercent float64   `json:"change_percent"`
	Message       string    `json:"message"`
}

// HistoryPoint is a framework result joined with its owning run's
// producer timestamp, ordered by that timestamp in trend queries.
type HistoryPoint struct {
	RunID      uint   `json:"run_id"`
	Timestamp  string `json:"timestamp"`
	ResultKind string `json:"result_kind"`

	LatencyMs           *float64 `json:"latency_ms,omitempty"`
	ThroughputOpsPerSec *float64 `json:"throughput_ops_per_sec,omitempty"`
	SuccessRatePercent  *float64 `json:"success_rate_percent,omitempty"`
	SerializedSizeBytes *int64   `json:"serialized_size_bytes,omitempty"`
	CompressionRatio    *float64 `json:"compression_ratio,omitempty"`
	P50Ms               *float64 `json:"p50_ms,omitempty"`
	P95Ms               *float64 `json:"p95_ms,omitempty"`
	P99Ms               *float64 `json:"p99_ms,omitempty"`
}

// MetricValue returns the value of the named metric, or nil when the
// metric is unknown or was not measured.
func (p *HistoryPoint) MetricValue(metric string) *float64 {
	r := FrameworkResult{
		LatencyMs:           p.LatencyMs,
		ThroughputOpsPerSec: p.ThroughputOpsPerSec,
		SuccessRatePercent:  p.SuccessRatePercent,
		SerializedSizeBytes: p.SerializedSizeBytes,
		CompressionRatio:    p.CompressionRatio,
		P50Ms:               p.P50Ms,
		P95Ms:               p.P95Ms,
		P99Ms:               p.P99Ms,
	}

	return r.MetricValue(metric)
}

// Stats summarizes the history database.
type Stats struct {
	DatabaseSizeBytes int64 `json:"database_size_bytes"`
	RunCount          int64 `json:"run_count"`
	ResultCount       int64 `json:"result_count"`
	AlertCount        int64 `json:"alert_count"`
}

// ValidMetric reports whether metric names a known numeric metric
// column.
func ValidMetric(metric string) bool {
	switch metric {
	case MetricLatencyMs, MetricThroughputOpsPerSec,
		MetricSuccessRatePercent, MetricSerializedSizeBytes,
		MetricCompressionRatio, MetricP50Ms, MetricP95Ms, MetricP99Ms:
		return true
	default:
		return false
	}
}
