package cmd

import (
	"fmt"

	"github.com/andresmejia3/streetcurate/internal/export"
	"github.com/andresmejia3/streetcurate/internal/rank"
	"github.com/spf13/cobra"
)

var (
	exportDir  string
	exportFile string
	exportSave bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the per-image summary of the curated dataset as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "out", "data", "Existing folder to write the CSV into")
	exportCmd.Flags().StringVar(&exportFile, "file", "processed_data.csv", "Name of the CSV file")
	exportCmd.Flags().Float64("conf", 0.4, "Keep detections with confidence strictly above this value")
	exportCmd.Flags().Bool("drop-nulls", false, "Drop rows holding null values before exporting")
	exportCmd.Flags().BoolVar(&exportSave, "save", false, "Also persist the run and its summaries to --db")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command) error {
	curated, report, err := loadCurated(cmd)
	if err != nil {
		return err
	}
	data := rank.FilterByConfidence(curated, cfg.Confidence)

	inCity, err := inCityFunc(cmd)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintln(stderr, "\n📝 Starting to create the final dataset...")
	summaries := export.Summarize(data, inCity)

	msg, err := export.ToCSV(exportDir, exportFile, summaries)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)

	if !exportSave {
		return nil
	}
	db, err := connect(cmd)
	if err != nil {
		return err
	}
	// The run stores the filtered detections, so kept counts those.
	runID, err := db.CreateRun(cmd.Context(), cfg.Root, len(data), report.Removed+report.NullsDropped)
	if err != nil {
		return err
	}
	if err := db.InsertDetections(cmd.Context(), runID, data); err != nil {
		return err
	}
	if err := db.InsertSummaries(cmd.Context(), runID, summaries); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "💾 Saved run %d with %d summaries.\n", runID, len(summaries))
	return nil
}
