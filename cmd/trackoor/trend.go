package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serbench/trackoor/pkg/history"
	"github.com/serbench/trackoor/pkg/tracker"
)

var (
	trendMetric string
	trendDays   int
)

var trendCmd = &cobra.Command{
	Use:   "trend <framework>",
	Short: "Analyze a framework's metric trend over a time window",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrend,
}

func init() {
	trendCmd.Flags().StringVar(&trendMetric, "metric",
		history.MetricLatencyMs, "metric to analyze")
	trendCmd.Flags().IntVar(&trendDays, "days", 30,
		"trailing window in days")

	rootCmd.AddCommand(trendCmd)
}

func runTrend(cmd *cobra.Command, args []string) error {
	return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
		report, err := tr.Trend(
			cmd.Context(), args[0], trendMetric, trendDays,
		)
		if err != nil {
			return err
		}

		fmt.Printf("%s %s over %d days (%d data points)\n",
			report.Framework, report.Metric,
			report.WindowDays, report.Count)
		fmt.Printf("  mean:   %.3f\n", report.Mean)
		fmt.Printf("  min:    %.3f\n", report.Min)
		fmt.Printf("  max:    %.3f\n", report.Max)
		fmt.Printf("  latest: %.3f\n", report.Latest)

		if report.Direction != "" {
			fmt.Printf("  trend:  %s (%+.1f%%)\n",
				report.Direction, report.ChangePercent)
		}

		return nil
	})
}
