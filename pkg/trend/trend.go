package trend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/serbench/trackoor/pkg/history"
	"github.com/serbench/trackoor/pkg/regression"
)

// ErrNoData is returned when a framework has no measurements for the
// requested metric inside the window.
var ErrNoData = errors.New("no measurements in window")

// StableBandPct is the absolute trend change below which a series is
// classified as stable.
const StableBandPct = 5.0

// Direction classifies where a metric is heading over the window.
type Direction string

const (
	DirectionStable    Direction = "stable"
	DirectionImproving Direction = "improving"
	DirectionWorsening Direction = "worsening"
)

// Report summarizes one framework's metric over a time window.
//
// Direction uses a first-half/second-half mean split. With very few
// points the split is statistically weak; the direction is still
// reported (and omitted entirely below 2 points, where no split
// exists), matching the behavior of the data this store was built to
// track.
type Report struct {
	Framework  string  `json:"framework"`
	Metric     string  `json:"metric"`
	WindowDays int     `json:"window_days"`
	Count      int     `json:"count"`
	Mean       float64 `json:"mean"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Latest     float64 `json:"latest"`

	Direction     Direction `json:"direction,omitempty"`
	ChangePercent float64   `json:"change_percent"`
}

// Analyzer computes time-windowed trends from the history store.
type Analyzer struct {
	log   logrus.FieldLogger
	store history.Store
	now   func() time.Time
}

// NewAnalyzer creates a trend analyzer over the given store.
func NewAnalyzer(log logrus.FieldLogger, store history.Store) *Analyzer {
	return &Analyzer{
		log:   log.WithField("component", "trend"),
		store: store,
		now:   time.Now,
	}
}

// Analyze aggregates a framework's metric over the trailing window.
func (a *Analyzer) Analyze(
	ctx context.Context, framework, metric string, windowDays int,
) (*Report, error) {
	if !history.ValidMetric(metric) {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}

	since := a.now().UTC().
		AddDate(0, 0, -windowDays).
		Format(time.RFC3339)

	points, err := a.store.FrameworkHistory(ctx, framework, since)
	if err != nil {
		return nil, err
	}

	// Collect measured values in timestamp order; unmeasured rows do
	// not contribute.
	values := make([]float64, 0, len(points))

	for i := range points {
		if v := points[i].MetricValue(metric); v != nil {
			values = append(values, *v)
		}
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s %s over %d days",
			ErrNoData, framework, metric, windowDays)
	}

	report := &Report{
		Framework:  framework,
		Metric:     metric,
		WindowDays: windowDays,
		Count:      len(values),
		Mean:       mean(values),
		Min:        values[0],
		Max:        values[0],
		Latest:     values[len(values)-1],
	}

	for _, v := range values {
		if v < report.Min {
			report.Min = v
		}

		if v > report.Max {
			report.Max = v
		}
	}

	if len(values) >= 2 {
		report.Direction, report.ChangePercent = direction(metric, values)
	}

	return report, nil
}

// direction splits the ordered series at the midpoint and compares the
// halves' means. The sign of a "good" change depends on the metric's
// polarity.
func direction(metric string, values []float64) (Direction, float64) {
	mid := len(values) / 2
	firstMean := mean(values[:mid])
	secondMean := mean(values[mid:])

	if firstMean == 0 {
		return DirectionStable, 0
	}

	change := (secondMean - firstMean) / firstMean * 100

	if change < StableBandPct && change > -StableBandPct {
		return DirectionStable, change
	}

	rising := change > 0

	if regression.PolarityOf(metric) == regression.LowerIsBetter {
		if rising {
			return DirectionWorsening, change
		}

		return DirectionImproving, change
	}

	if rising {
		return DirectionImproving, change
	}

	return DirectionWorsening, change
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
