package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/serbench/trackoor/pkg/tracker"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show recent runs and alerts in one view",
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
		runs, err := tr.Runs(cmd.Context(), "", 10)
		if err != nil {
			return err
		}

		fmt.Println("Recent runs:")

		if len(runs) == 0 {
			fmt.Println("  none")
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "  ID\tTIMESTAMP\tKIND\tSUCCESSFUL")

			for _, run := range runs {
				fmt.Fprintf(w, "  %d\t%s\t%s\t%d/%d\n",
					run.ID, run.Timestamp, run.RunKind,
					run.SuccessfulFrameworks, run.TotalFrameworks)
			}

			if err := w.Flush(); err != nil {
				return err
			}
		}

		alerts, err := tr.Alerts(cmd.Context(), "", 10)
		if err != nil {
			return err
		}

		fmt.Println("\nRecent alerts:")

		if len(alerts) == 0 {
			fmt.Println("  none")

			return nil
		}

		for i := range alerts {
			fmt.Printf("  %s [%s] %s\n",
				alerts[i].Timestamp.Format(time.RFC3339),
				alerts[i].Severity, alerts[i].Message)
		}

		return nil
	})
}
