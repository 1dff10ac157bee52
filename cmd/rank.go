package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/andresmejia3/streetcurate/internal/rank"
	"github.com/spf13/cobra"
)

var rankTop int

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank detected objects over the curated, confidence-filtered dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rankTop < 1 {
			return fmt.Errorf("--top must be >= 1, got %d", rankTop)
		}
		return runRank(cmd)
	},
}

func init() {
	rankCmd.Flags().Float64("conf", 0.4, "Keep detections with confidence strictly above this value")
	rankCmd.Flags().Bool("drop-nulls", false, "Drop rows holding null values before ranking")
	rankCmd.Flags().IntVar(&rankTop, "top", 3, "Number of classes to list")
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command) error {
	curated, _, err := loadCurated(cmd)
	if err != nil {
		return err
	}
	data := rank.FilterByConfidence(curated, cfg.Confidence)
	fmt.Fprintf(cmd.ErrOrStderr(), "\n⚙️  %d of %d detections above confidence %.2f\n", len(data), len(curated), cfg.Confidence)

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	fmt.Fprintln(w, "CLASS ID\tOBJECT\tDETECTIONS")
	fmt.Fprintln(w, "--------\t------\t----------")
	for i, o := range rank.CountObjects(data) {
		if i == rankTop {
			break
		}
		fmt.Fprintf(w, "%d\t%s\t%d\n", o.ClassID, o.ClassName, o.Count)
	}
	w.Flush()

	fmt.Fprintf(out, "\nObjects per image: %d\n\n", rank.ObjectsPerImage(data))

	fmt.Fprintln(w, "OBJECT\tPOPULAR IN")
	fmt.Fprintln(w, "------\t----------")
	for i, c := range rank.PopularObjects(data).Sorted() {
		if i == rankTop {
			break
		}
		fmt.Fprintf(w, "%s\t%d images\n", c.Name, c.Count)
	}
	w.Flush()
	fmt.Fprintln(out)

	fmt.Fprintln(w, "CITY\tYEAR\tCARS")
	fmt.Fprintln(w, "----\t----\t----")
	for _, c := range rank.CarsByCityYear(data) {
		fmt.Fprintf(w, "%s\t%d\t%d\n", c.City, c.Year, c.Count)
	}
	return w.Flush()
}
