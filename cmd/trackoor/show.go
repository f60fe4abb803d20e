package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/serbench/trackoor/pkg/tracker"
)

var (
	showFramework string
	showLimit     int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show recent benchmark runs",
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFramework, "framework", "",
		"only show runs containing this framework")
	showCmd.Flags().IntVar(&showLimit, "limit", 10,
		"maximum number of runs to show")

	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
		runs, err := tr.Runs(cmd.Context(), showFramework, showLimit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded")

			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIMESTAMP\tKIND\tFRAMEWORKS\tSUCCESSFUL")

		for _, run := range runs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n",
				run.ID, run.Timestamp, run.RunKind,
				run.TotalFrameworks, run.SuccessfulFrameworks)
		}

		return w.Flush()
	})
}
