// Package curate removes malformed annotation files from a dataset and flags
// images that do not match the fleet's capture profile.
package curate

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresmejia3/streetcurate/internal/config"
	"github.com/andresmejia3/streetcurate/internal/labels"
	"github.com/andresmejia3/streetcurate/internal/types"
	"github.com/andresmejia3/streetcurate/internal/utils"
	log "github.com/sirupsen/logrus"
)

// Curator holds the reference profile and reporting sinks shared by all
// curation operations.
type Curator struct {
	Profile config.Profile
	Log     *log.Logger
	// Progress, when set, is called once for every file scanned.
	Progress func()
}

// New returns a Curator for the given capture profile. A nil logger falls
// back to the logrus standard logger.
func New(profile config.Profile, logger *log.Logger) *Curator {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Curator{Profile: profile, Log: logger}
}

// Report summarises one curation pass.
type Report struct {
	Rejected     []string       // stems of the invalid annotation files
	Removed      int            // rows dropped because their file was rejected
	Nulls        map[string]int // null counts per column after rejection
	NullsDropped int            // rows dropped by the optional null cleanup
}

func (c *Curator) tick() {
	if c.Progress != nil {
		c.Progress()
	}
}

// NonYOLO returns the stems of every .txt file in labelDir that fails
// validation, sorted by name.
func (c *Curator) NonYOLO(labelDir string) ([]string, error) {
	if err := utils.CheckPath(labelDir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(labelDir)
	if err != nil {
		return nil, err
	}

	invalid := []string{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		c.tick()
		ok, err := labels.ValidateFile(c.Log, filepath.Join(labelDir, e.Name()))
		if err != nil {
			return nil, err
		}
		if !ok {
			invalid = append(invalid, strings.TrimSuffix(e.Name(), ".txt"))
		}
	}
	sort.Strings(invalid)

	if len(invalid) == 0 {
		c.Log.Info("No incompatible files found.")
	} else {
		c.Log.WithField("files", invalid).Info("Files with incorrect values found, deleting them from the dataset")
	}
	return invalid, nil
}

// Curate drops every detection whose annotation file is invalid, then reports
// nulls in what remains. With dropNulls, rows holding a null are removed too.
// The input dataset is not modified.
func (c *Curator) Curate(labelDir string, data types.Dataset, dropNulls bool) (types.Dataset, Report, error) {
	invalid, err := c.NonYOLO(labelDir)
	if err != nil {
		return nil, Report{}, err
	}
	out, report := c.Apply(invalid, data, dropNulls)
	return out, report, nil
}

// Apply removes the detections of the rejected files and runs the null
// cleanup. It is the part of Curate that does not touch the filesystem.
func (c *Curator) Apply(rejected []string, data types.Dataset, dropNulls bool) (types.Dataset, Report) {
	report := Report{Rejected: rejected}

	skip := make(map[string]struct{}, len(rejected))
	for _, stem := range rejected {
		skip[stem] = struct{}{}
	}

	kept := make(types.Dataset, 0, len(data))
	for _, d := range data {
		if _, bad := skip[d.ImageID]; bad {
			report.Removed++
			continue
		}
		kept = append(kept, d)
	}
	c.Log.Infof("Removed %d rows from the dataset.", report.Removed)

	report.Nulls = kept.NullCounts()
	if kept.TotalNulls() == 0 {
		c.Log.Info("There are no null values.")
		return kept, report
	}

	fields := log.Fields{}
	for col, n := range report.Nulls {
		if n > 0 {
			fields[col] = n
		}
	}
	c.Log.WithFields(fields).Warn("There are null values")

	if dropNulls {
		cleaned := kept.DropNulls()
		report.NullsDropped = len(kept) - len(cleaned)
		c.Log.Infof("Deleting %d rows from the dataset due to null values.", report.NullsDropped)
		kept = cleaned
	}
	return kept, report
}
