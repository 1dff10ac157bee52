package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var curateSave bool

var curateCmd = &cobra.Command{
	Use:   "curate",
	Short: "Load the dataset and drop the detections of malformed annotation files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCurate(cmd)
	},
}

func init() {
	curateCmd.Flags().Bool("drop-nulls", false, "Also drop rows holding null values")
	curateCmd.Flags().BoolVar(&curateSave, "save", false, "Persist the run and its detections to --db")
	rootCmd.AddCommand(curateCmd)
}

func runCurate(cmd *cobra.Command) error {
	curated, report, err := loadCurated(cmd)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(stderr, "📊 CURATION SUMMARY\n")
	fmt.Fprintf(stderr, "---------------------------------------------------------\n")
	fmt.Fprintf(stderr, "🗂️  Rejected files:      %d\n", len(report.Rejected))
	fmt.Fprintf(stderr, "✂️  Rows removed:        %d\n", report.Removed)
	if report.NullsDropped > 0 {
		fmt.Fprintf(stderr, "🕳️  Null rows dropped:   %d\n", report.NullsDropped)
	}
	fmt.Fprintf(stderr, "✅ Rows kept:           %d\n", len(curated))

	var cols []string
	for col, n := range report.Nulls {
		if n > 0 {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	for _, col := range cols {
		fmt.Fprintf(stderr, "   null %-12s %d\n", col, report.Nulls[col])
	}
	fmt.Fprintf(stderr, "---------------------------------------------------------\n")

	if !curateSave {
		return nil
	}

	db, err := connect(cmd)
	if err != nil {
		return err
	}
	runID, err := db.CreateRun(cmd.Context(), cfg.Root, len(curated), report.Removed+report.NullsDropped)
	if err != nil {
		return err
	}
	if err := db.InsertDetections(cmd.Context(), runID, curated); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "💾 Saved run %d with %d detections.\n", runID, len(curated))
	return nil
}
