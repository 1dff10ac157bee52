package curate

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresmejia3/streetcurate/internal/imagemeta"
	"github.com/andresmejia3/streetcurate/internal/utils"
	log "github.com/sirupsen/logrus"
)

// Anomaly explains why one image was flagged.
type Anomaly struct {
	Name    string
	Reasons []string
}

// Classify compares one probed image against the profile and returns the
// violated conditions, empty when the image conforms.
func (c *Curator) Classify(info imagemeta.Info, paired bool) []string {
	var reasons []string
	if !paired {
		reasons = append(reasons, "no matching annotation file")
	}
	if info.Size() != c.Profile.Size() {
		reasons = append(reasons, "size differs from profile")
	}
	// Height is compared on its own as well as inside the size pair.
	if info.Height != c.Profile.Height {
		reasons = append(reasons, "height differs from profile")
	}
	if info.Format != c.Profile.Format {
		reasons = append(reasons, "format is not "+c.Profile.Format)
	}
	if info.Mode != c.Profile.Mode {
		reasons = append(reasons, "mode is not "+c.Profile.Mode)
	}
	return reasons
}

// Anomalies probes every image in imageDir and returns the ones that violate
// the capture profile or have no annotation file in labelDir, sorted by name.
func (c *Curator) Anomalies(imageDir, labelDir string) ([]Anomaly, error) {
	if err := utils.CheckPaths(imageDir, labelDir); err != nil {
		return nil, err
	}

	labelEntries, err := os.ReadDir(labelDir)
	if err != nil {
		return nil, err
	}
	labelSet := make(map[string]struct{}, len(labelEntries))
	for _, e := range labelEntries {
		labelSet[e.Name()] = struct{}{}
	}

	imageEntries, err := os.ReadDir(imageDir)
	if err != nil {
		return nil, err
	}

	var found []Anomaly
	for _, e := range imageEntries {
		if e.IsDir() || !imagemeta.IsImage(e.Name()) {
			continue
		}
		c.tick()

		_, paired := labelSet[utils.Stem(e.Name())+".txt"]
		info, err := imagemeta.Probe(filepath.Join(imageDir, e.Name()))
		if err != nil {
			c.Log.WithFields(log.Fields{"image": e.Name(), "error": err}).Warn("Image could not be decoded")
			found = append(found, Anomaly{Name: e.Name(), Reasons: []string{"undecodable image"}})
			continue
		}

		if reasons := c.Classify(info, paired); len(reasons) > 0 {
			c.Log.WithFields(log.Fields{"image": e.Name(), "reasons": strings.Join(reasons, "; ")}).Debug("Anomalous image")
			found = append(found, Anomaly{Name: e.Name(), Reasons: reasons})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })

	if len(found) == 0 {
		c.Log.Info("No strange images have been found.")
	}
	return found, nil
}

// AnomalousImages returns the filenames, extension included, of the images
// flagged by Anomalies.
func (c *Curator) AnomalousImages(imageDir, labelDir string) ([]string, error) {
	found, err := c.Anomalies(imageDir, labelDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(found))
	for i, a := range found {
		names[i] = a.Name
	}
	return names, nil
}

// AnomalySet returns the extension-less identities of the anomalous images.
// Callers checking many identities should compute it once.
func (c *Curator) AnomalySet(imageDir, labelDir string) (map[string]struct{}, error) {
	names, err := c.AnomalousImages(imageDir, labelDir)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[utils.StripExtension(n)] = struct{}{}
	}
	return set, nil
}

// InCity reports whether the extension-less identity image belongs to the
// conforming fleet, i.e. is absent from the anomalous set.
func (c *Curator) InCity(image, imageDir, labelDir string) (bool, error) {
	set, err := c.AnomalySet(imageDir, labelDir)
	if err != nil {
		return false, err
	}
	_, bad := set[image]
	return !bad, nil
}
