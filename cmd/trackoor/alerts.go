package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/serbench/trackoor/pkg/tracker"
)

var (
	alertsSeverity string
	alertsLimit    int
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show recent performance alerts",
	RunE:  runAlerts,
}

func init() {
	alertsCmd.Flags().StringVar(&alertsSeverity, "severity", "",
		"filter by severity (critical, warning, info)")
	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 20,
		"maximum number of alerts to show")

	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, args []string) error {
	return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
		alerts, err := tr.Alerts(cmd.Context(), alertsSeverity, alertsLimit)
		if err != nil {
			return err
		}

		if len(alerts) == 0 {
			fmt.Println("No alerts")

			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tSEVERITY\tFRAMEWORK\tCHANGE\tMESSAGE")

		for _, alert := range alerts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%+.1f%%\t%s\n",
				alert.Timestamp.Format(time.RFC3339),
				alert.Severity, alert.Framework,
				alert.ChangePercent, alert.Message)
		}

		return w.Flush()
	})
}
