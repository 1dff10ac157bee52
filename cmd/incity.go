package cmd

import (
	"fmt"

	"github.com/andresmejia3/streetcurate/internal/imagemeta"
	"github.com/andresmejia3/streetcurate/internal/utils"
	"github.com/spf13/cobra"
)

var inCityCmd = &cobra.Command{
	Use:   "incity <image>",
	Short: "Report whether an image identity belongs to the conforming fleet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Accept "name.png" as well as the bare identity.
		image := utils.StripExtension(args[0])

		c, bar := newCurator(cmd, "🖼️  Probing images", countFiles(cfg.ImageDir(), imagemeta.IsImage))
		ok, err := c.InCity(image, cfg.ImageDir(), cfg.LabelDir())
		bar.Finish()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%t\n", image, ok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inCityCmd)
}
