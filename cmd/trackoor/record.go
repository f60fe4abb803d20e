package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/serbench/trackoor/pkg/history"
	"github.com/serbench/trackoor/pkg/tracker"
)

var recordCmd = &cobra.Command{
	Use:   "record <results.json> [more.json...]",
	Short: "Record benchmark results into the history database",
	Long: `Record one or more benchmark results documents. Each document is
parsed, normalized and stored as one run, then compared against the
most recent run of the same kind for regressions.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			summary, err := tr.Record(cmd.Context(), raw)
			if err != nil {
				return fmt.Errorf("recording %s: %w", path, err)
			}

			fmt.Printf("Recorded run %d (%s): %d/%d frameworks successful\n",
				summary.RunID, summary.RunKind,
				summary.SuccessfulFrameworks, summary.TotalFrameworks)

			for i := range summary.Alerts {
				printAlert(&summary.Alerts[i])
			}
		}

		return nil
	})
}

func printAlert(alert *history.PerformanceAlert) {
	marker := "i"

	switch alert.Severity {
	case history.SeverityCritical:
		marker = "!!"
	case history.SeverityWarning:
		marker = "!"
	}

	fmt.Printf("  [%s] %s\n", marker, alert.Message)
}
