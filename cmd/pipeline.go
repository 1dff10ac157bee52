package cmd

import (
	"os"
	"strings"

	"github.com/andresmejia3/streetcurate/internal/curate"
	"github.com/andresmejia3/streetcurate/internal/dataset"
	"github.com/andresmejia3/streetcurate/internal/imagemeta"
	"github.com/andresmejia3/streetcurate/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// newCurator returns a curator whose scans advance a progress bar on stderr.
// total is the number of files the scan will visit.
func newCurator(cmd *cobra.Command, desc string, total int) (*curate.Curator, *progressbar.ProgressBar) {
	if total <= 0 {
		// Fallback to a spinner if the folder could not be counted
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()), // Write bar to Stderr
		progressbar.OptionShowCount(),
	)
	c := curate.New(cfg.Profile, logger)
	c.Progress = func() { bar.Add(1) }
	return c, bar
}

// countFiles counts the regular files in dir accepted by keep. Errors count
// as zero; the scan itself reports them.
func countFiles(dir string, keep func(name string) bool) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() && keep(e.Name()) {
			n++
		}
	}
	return n
}

func isLabel(name string) bool { return strings.HasSuffix(name, ".txt") }

// loadCurated loads the dataset root and removes the detections of invalid
// annotation files.
func loadCurated(cmd *cobra.Command) (types.Dataset, curate.Report, error) {
	data, err := dataset.Load(cfg.Root, logger)
	if err != nil {
		return nil, curate.Report{}, err
	}

	c, bar := newCurator(cmd, "🔍 Validating labels", countFiles(cfg.LabelDir(), isLabel))
	curated, report, err := c.Curate(cfg.LabelDir(), data, cfg.DropNulls)
	bar.Finish()
	if err != nil {
		return nil, curate.Report{}, err
	}
	return curated, report, nil
}

// inCityFunc probes the image folder once and answers in_city lookups from
// the resulting anomaly set.
func inCityFunc(cmd *cobra.Command) (func(string) bool, error) {
	c, bar := newCurator(cmd, "🖼️  Probing images", countFiles(cfg.ImageDir(), imagemeta.IsImage))
	set, err := c.AnomalySet(cfg.ImageDir(), cfg.LabelDir())
	bar.Finish()
	if err != nil {
		return nil, err
	}
	return func(id string) bool {
		_, bad := set[id]
		return !bad
	}, nil
}
