package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/andresmejia3/streetcurate/internal/labels"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check that annotation files follow the YOLO record format",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, files []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FILE\tSTATUS")
	fmt.Fprintln(w, "----\t------")

	invalid := 0
	for _, f := range files {
		ok, err := labels.ValidateFile(logger, f)
		if err != nil {
			w.Flush()
			return err
		}
		status := "OK"
		if !ok {
			status = "INVALID"
			invalid++
		}
		fmt.Fprintf(w, "%s\t%s\n", f, status)
	}
	w.Flush()

	if invalid > 0 {
		return fmt.Errorf("%d of %d files are not valid YOLO annotations", invalid, len(files))
	}
	return nil
}
