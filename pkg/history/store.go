package history

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/serbench/trackoor/pkg/config"
)

// Store provides persistence for benchmark runs, per-framework results
// and performance alerts. All write operations are durable on return:
// InsertRun commits the run and its results in a single transaction, so
// a run id is never visible with a partial result set.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	InsertRun(
		ctx context.Context, run *BenchmarkRun, results []FrameworkResult,
	) (uint, error)
	GetRun(ctx context.Context, runID uint) (*BenchmarkRun, error)
	ListRuns(
		ctx context.Context, framework string, limit int,
	) ([]BenchmarkRun, error)

	ResultsForRun(ctx context.Context, runID uint) ([]FrameworkResult, error)
	GetResult(
		ctx context.Context, runID uint, framework, resultKind string,
	) (*FrameworkResult, error)
	FindPreviousComparableRun(
		ctx context.Context, runID uint,
	) (*BenchmarkRun, error)
	FrameworkHistory(
		ctx context.Context, framework, since string,
	) ([]HistoryPoint, error)

	InsertAlert(ctx context.Context, alert *PerformanceAlert) error
	ListAlerts(
		ctx context.Context, severity string, limit int,
	) ([]PerformanceAlert, error)

	Stats(ctx context.Context) (*Stats, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new history Store backed by the configured
// database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "history"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&BenchmarkRun{},
		&FrameworkResult{},
		&PerformanceAlert{},
	); err != nil {
		return fmt.Errorf("running history migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).
		Info("History database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// resultBatchSize bounds the number of result rows per insert statement.
const resultBatchSize = 100

// InsertRun appends a run and its result rows in a single transaction
// and returns the assigned run id. A run with zero result rows is valid.
func (s *store) InsertRun(
	ctx context.Context, run *BenchmarkRun, results []FrameworkResult,
) (uint, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}

		for i := range results {
			results[i].RunID = run.ID
		}

		if len(results) > 0 {
			if err := tx.CreateInBatches(
				results, resultBatchSize,
			).Error; err != nil {
				return fmt.Errorf("inserting framework results: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return run.ID, nil
}

// GetRun returns the run with the given id.
func (s *store) GetRun(
	ctx context.Context, runID uint,
) (*BenchmarkRun, error) {
	var run BenchmarkRun
	if err := s.db.WithContext(ctx).
		First(&run, runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %d not found", runID)
		}

		return nil, fmt.Errorf("getting run: %w", err)
	}

	return &run, nil
}

// ListRuns returns the most recent runs in insertion order, newest
// first. When framework is non-empty only runs containing a result for
// that framework are returned.
func (s *store) ListRuns(
	ctx context.Context, framework string, limit int,
) ([]BenchmarkRun, error) {
	q := s.db.WithContext(ctx).
		Model(&BenchmarkRun{}).
		Order("benchmark_runs.id DESC").
		Limit(limit)

	if framework != "" {
		q = q.
			Joins("JOIN framework_results ON framework_results.run_id = benchmark_runs.id").
			Where("framework_results.framework = ?", framework).
			Distinct("benchmark_runs.*")
	}

	var runs []BenchmarkRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

// ResultsForRun returns all framework results recorded for a run.
func (s *store) ResultsForRun(
	ctx context.Context, runID uint,
) ([]FrameworkResult, error) {
	var results []FrameworkResult
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("listing results for run: %w", err)
	}

	return results, nil
}

// GetResult returns the result for a (run, framework, result kind)
// triple, or nil when no such row exists.
func (s *store) GetResult(
	ctx context.Context, runID uint, framework, resultKind string,
) (*FrameworkResult, error) {
	var result FrameworkResult
	err := s.db.WithContext(ctx).
		Where("run_id = ? AND framework = ? AND result_kind = ?",
			runID, framework, resultKind).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting result: %w", err)
	}

	return &result, nil
}

// FindPreviousComparableRun returns the most recent run with the same
// run kind and a strictly smaller id than the given run, or nil when no
// such run exists. Ordering uses the insertion-order id, not the
// producer timestamp, so backfilled timestamps cannot corrupt
// comparability.
func (s *store) FindPreviousComparableRun(
	ctx context.Context, runID uint,
) (*BenchmarkRun, error) {
	current, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	var prev BenchmarkRun
	err = s.db.WithContext(ctx).
		Where("id < ? AND run_kind = ?", runID, current.RunKind).
		Order("id DESC").
		First(&prev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding previous comparable run: %w", err)
	}

	return &prev, nil
}

// FrameworkHistory returns all results for a framework across runs
// whose producer timestamp is at or after since, ordered by that
// timestamp ascending. ISO-8601 timestamps compare lexicographically.
func (s *store) FrameworkHistory(
	ctx context.Context, framework, since string,
) ([]HistoryPoint, error) {
	var points []HistoryPoint
	if err := s.db.WithContext(ctx).
		Model(&FrameworkResult{}).
		Select(
			"framework_results.run_id, benchmark_runs.timestamp, "+
				"framework_results.result_kind, framework_results.latency_ms, "+
				"framework_results.throughput_ops_per_sec, "+
				"framework_results.success_rate_percent, "+
				"framework_results.serialized_size_bytes, "+
				"framework_results.compression_ratio, "+
				"framework_results.p50_ms, framework_results.p95_ms, "+
				"framework_results.p99_ms",
		).
		Joins("JOIN benchmark_runs ON benchmark_runs.id = framework_results.run_id").
		Where("framework_results.framework = ? AND benchmark_runs.timestamp >= ?",
			framework, since).
		Order("benchmark_runs.timestamp ASC").
		Scan(&points).Error; err != nil {
		return nil, fmt.Errorf("listing framework history: %w", err)
	}

	return points, nil
}

// InsertAlert appends a performance alert.
func (s *store) InsertAlert(
	ctx context.Context, alert *PerformanceAlert,
) error {
	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}

	return nil
}

// ListAlerts returns the most recent alerts, optionally filtered by
// severity.
func (s *store) ListAlerts(
	ctx context.Context, severity string, limit int,
) ([]PerformanceAlert, error) {
	q := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit)

	if severity != "" {
		q = q.Where("severity = ?", severity)
	}

	var alerts []PerformanceAlert
	if err := q.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}

	return alerts, nil
}

// Stats returns the database file size and per-table row counts. The
// three counts are independent reads and are gathered concurrently.
func (s *store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if s.cfg.Driver == "sqlite" && s.cfg.SQLite.Path != ":memory:" {
		if info, err := os.Stat(s.cfg.SQLite.Path); err == nil {
			stats.DatabaseSizeBytes = info.Size()
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.WithContext(gctx).
			Model(&BenchmarkRun{}).Count(&stats.RunCount).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Model(&FrameworkResult{}).Count(&stats.ResultCount).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Model(&PerformanceAlert{}).Count(&stats.AlertCount).Error
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("counting rows: %w", err)
	}

	return stats, nil
}
