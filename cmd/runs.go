package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the curation runs stored in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRuns(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command) error {
	db, err := connect(cmd)
	if err != nil {
		return err
	}
	runs, err := db.ListRuns(cmd.Context())
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tROOT\tKEPT\tREMOVED\tCREATED")
	fmt.Fprintln(w, "--\t----\t----\t-------\t-------")

	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", r.ID, r.Root, r.Kept, r.Removed, r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
