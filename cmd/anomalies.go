package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/andresmejia3/streetcurate/internal/imagemeta"
	"github.com/spf13/cobra"
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "List images that do not match the capture profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnomalies(cmd)
	},
}

func init() {
	rootCmd.AddCommand(anomaliesCmd)
}

func runAnomalies(cmd *cobra.Command) error {
	c, bar := newCurator(cmd, "🖼️  Probing images", countFiles(cfg.ImageDir(), imagemeta.IsImage))
	found, err := c.Anomalies(cfg.ImageDir(), cfg.LabelDir())
	bar.Finish()
	if err != nil {
		return err
	}

	p := cfg.Profile
	fmt.Fprintf(cmd.ErrOrStderr(), "\n📐 Profile: %dx%d %s %s\n", p.Width, p.Height, p.Format, p.Mode)
	if len(found) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No anomalous images found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "IMAGE\tREASONS")
	fmt.Fprintln(w, "-----\t-------")
	for _, a := range found {
		fmt.Fprintf(w, "%s\t%s\n", a.Name, strings.Join(a.Reasons, "; "))
	}
	return w.Flush()
}
