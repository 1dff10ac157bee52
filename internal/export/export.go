// Package export writes the per-image summary of a curated dataset.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/andresmejia3/streetcurate/internal/types"
	"github.com/andresmejia3/streetcurate/internal/utils"
)

// Header is the first row of every summary file.
var Header = []string{"image_id", "city", "year", "in_city", "car", "traffic light", "person"}

// Summarize builds one summary per image with its car, traffic light and
// person counts. inCity decides the in_city flag of each image. Detections
// without a date are left out.
func Summarize(data types.Dataset, inCity func(imageID string) bool) []types.ImageSummary {
	type key struct {
		image string
		city  string
		year  int
	}
	rows := make(map[key]*types.ImageSummary)
	for _, d := range data {
		if !d.Date.Valid {
			continue
		}
		k := key{d.ImageID, d.City, d.Date.Time.Year()}
		s, ok := rows[k]
		if !ok {
			s = &types.ImageSummary{ImageID: k.image, City: k.city, Year: k.year}
			rows[k] = s
		}
		if !d.ClassName.Valid {
			continue
		}
		switch d.ClassName.String {
		case "car":
			s.Cars++
		case "traffic light":
			s.TrafficLight++
		case "person":
			s.Persons++
		}
	}

	out := make([]types.ImageSummary, 0, len(rows))
	for _, s := range rows {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ImageID != b.ImageID {
			return a.ImageID < b.ImageID
		}
		if a.City != b.City {
			return a.City < b.City
		}
		return a.Year < b.Year
	})

	// One lookup per image; InCity probes files on disk.
	flags := make(map[string]bool)
	for i := range out {
		id := out[i].ImageID
		flag, ok := flags[id]
		if !ok {
			flag = inCity(id)
			flags[id] = flag
		}
		out[i].InCity = flag
	}
	return out
}

// WriteCSV writes the header and one record per summary to w.
func WriteCSV(w io.Writer, summaries []types.ImageSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, s := range summaries {
		record := []string{
			s.ImageID,
			s.City,
			strconv.Itoa(s.Year),
			strconv.FormatBool(s.InCity),
			strconv.Itoa(s.Cars),
			strconv.Itoa(s.TrafficLight),
			strconv.Itoa(s.Persons),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToCSV saves the summaries as dir/file and returns a confirmation message.
// dir must already exist.
func ToCSV(dir, file string, summaries []types.ImageSummary) (string, error) {
	if err := utils.CheckPath(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, file)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: could not create '%s': %v", utils.ErrPersistence, path, err)
	}
	if err := WriteCSV(f, summaries); err != nil {
		f.Close()
		return "", fmt.Errorf("%w: could not write '%s': %v", utils.ErrPersistence, path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: could not close '%s': %v", utils.ErrPersistence, path, err)
	}
	return fmt.Sprintf("The file '%s' has been saved in '%s'.", file, dir), nil
}
