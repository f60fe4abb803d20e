package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serbench/trackoor/pkg/tracker"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show history database statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
		stats, err := tr.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("runs:    %d\n", stats.RunCount)
		fmt.Printf("results: %d\n", stats.ResultCount)
		fmt.Printf("alerts:  %d\n", stats.AlertCount)

		if stats.DatabaseSizeBytes > 0 {
			fmt.Printf("size:    %.1f KiB\n",
				float64(stats.DatabaseSizeBytes)/1024)
		}

		return nil
	})
}
