// Package dataset reads a dataset root into a types.Dataset.
//
// A root holds three things:
//
//	class_name.txt     one "<id> <name>" pair per line
//	labels/<stem>.txt  annotation files, one detection per line
//	images/<stem>.png  the image each annotation file describes
//
// The stem encodes the capture: "<city>_..._<dd-mm-yyyy>".
package dataset

import (
	"bufio"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresmejia3/streetcurate/internal/labels"
	"github.com/andresmejia3/streetcurate/internal/types"
	"github.com/andresmejia3/streetcurate/internal/utils"
	log "github.com/sirupsen/logrus"
)

const (
	// CodesFile is the class code table inside a dataset root.
	CodesFile = "class_name.txt"
	// DateLayout parses the day-first date at the end of a stem. Day and
	// month may be zero-padded or not.
	DateLayout = "2-1-2006"
)

var codeLine = regexp.MustCompile(`^(\d+)\s(.+)$`)

// RawLine is one unparsed annotation line with the capture data of its file.
type RawLine struct {
	Text    string
	ImageID string
	City    string
	Date    string
}

// ReadCodes loads the class code table of root. Lines that are not
// "<id> <name>" are ignored.
func ReadCodes(root string) (map[int]string, error) {
	if err := utils.CheckPath(root); err != nil {
		return nil, err
	}
	path := filepath.Join(root, CodesFile)
	if err := utils.CheckPath(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class codes: %w", err)
	}
	defer f.Close()

	codes := make(map[int]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := codeLine.FindStringSubmatch(strings.TrimRight(scanner.Text(), "\r"))
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		codes[id] = m[2]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class codes: %w", err)
	}
	return codes, nil
}

// ReadLabels returns every line of every annotation file under root/labels
// whose image exists in root/images. Files without an image are skipped with
// a warning.
func ReadLabels(root string, logger log.FieldLogger) ([]RawLine, error) {
	labelDir := filepath.Join(root, "labels")
	imageDir := filepath.Join(root, "images")
	if err := utils.CheckPaths(root, labelDir, imageDir); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(labelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", labelDir, err)
	}

	var raw []RawLine
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ".txt")
		if _, err := os.Stat(filepath.Join(imageDir, stem+".png")); err != nil {
			logger.WithField("label", stem).Warn("No image found in folder 'images', skipping")
			continue
		}

		lines, err := labels.ReadLines(filepath.Join(labelDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		city, date := captureOf(stem)
		for _, line := range lines {
			raw = append(raw, RawLine{
				Text:    strings.TrimSpace(line),
				ImageID: stem,
				City:    city,
				Date:    date,
			})
		}
	}
	return raw, nil
}

// captureOf splits a stem into the city before the first underscore and the
// date after the last one.
func captureOf(stem string) (city, date string) {
	city = stem
	if i := strings.Index(stem, "_"); i >= 0 {
		city = stem[:i]
	}
	date = stem
	if i := strings.LastIndex(stem, "_"); i >= 0 {
		date = stem[i+1:]
	}
	return city, date
}

// Load reads root into a dataset sorted by image id. Values that cannot be
// parsed are kept as nulls so curation can report them.
func Load(root string, logger log.FieldLogger) (types.Dataset, error) {
	raw, err := ReadLabels(root, logger)
	if err != nil {
		return nil, err
	}
	codes, err := ReadCodes(root)
	if err != nil {
		return nil, err
	}

	data := make(types.Dataset, 0, len(raw))
	for _, r := range raw {
		data = append(data, parseLine(r, codes))
	}
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].ImageID < data[j].ImageID
	})
	return data, nil
}

func parseLine(r RawLine, codes map[int]string) types.Detection {
	d := types.Detection{ImageID: r.ImageID, City: r.City}

	if t, err := time.Parse(DateLayout, r.Date); err == nil {
		d.Date = sql.NullTime{Time: t, Valid: true}
	}

	tokens := strings.Split(r.Text, " ")
	token := func(i int) string {
		if i < len(tokens) {
			return tokens[i]
		}
		return ""
	}

	if id, err := strconv.ParseInt(token(0), 10, 64); err == nil {
		d.ClassID = sql.NullInt64{Int64: id, Valid: true}
		if name, ok := codes[int(id)]; ok {
			d.ClassName = sql.NullString{String: name, Valid: true}
		}
	}
	d.X = parseFloat(token(1))
	d.Y = parseFloat(token(2))
	d.W = parseFloat(token(3))
	d.H = parseFloat(token(4))
	d.Confidence = parseFloat(token(5))
	return d
}

func parseFloat(s string) sql.NullFloat64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
