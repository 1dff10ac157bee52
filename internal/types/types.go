package types

import (
	"database/sql"
	"time"
)

// Column names of a Dataset, in table order.
var Columns = []string{"image_id", "city", "date", "class_id", "x", "y", "w", "h", "confidence", "class_name"}

// Detection is one object found in one image, parsed from one annotation line.
// Fields the loader could not parse are left null.
type Detection struct {
	ImageID    string
	City       string
	Date       sql.NullTime
	ClassID    sql.NullInt64
	X          sql.NullFloat64
	Y          sql.NullFloat64
	W          sql.NullFloat64
	H          sql.NullFloat64
	Confidence sql.NullFloat64
	ClassName  sql.NullString
}

// HasNull reports whether any nullable field of the detection is missing.
func (d Detection) HasNull() bool {
	return !d.Date.Valid || !d.ClassID.Valid || !d.X.Valid || !d.Y.Valid ||
		!d.W.Valid || !d.H.Valid || !d.Confidence.Valid || !d.ClassName.Valid
}

// Dataset is the tabular projection of all annotation files of a dataset root.
type Dataset []Detection

// NullCounts returns the number of null values per column, keyed by column name.
// Columns without nulls are present with a zero count.
func (ds Dataset) NullCounts() map[string]int {
	counts := make(map[string]int, len(Columns))
	for _, c := range Columns {
		counts[c] = 0
	}
	for _, d := range ds {
		if d.ImageID == "" {
			counts["image_id"]++
		}
		if d.City == "" {
			counts["city"]++
		}
		if !d.Date.Valid {
			counts["date"]++
		}
		if !d.ClassID.Valid {
			counts["class_id"]++
		}
		if !d.X.Valid {
			counts["x"]++
		}
		if !d.Y.Valid {
			counts["y"]++
		}
		if !d.W.Valid {
			counts["w"]++
		}
		if !d.H.Valid {
			counts["h"]++
		}
		if !d.Confidence.Valid {
			counts["confidence"]++
		}
		if !d.ClassName.Valid {
			counts["class_name"]++
		}
	}
	return counts
}

// TotalNulls sums NullCounts over all columns.
func (ds Dataset) TotalNulls() int {
	total := 0
	for _, n := range ds.NullCounts() {
		total += n
	}
	return total
}

// DropNulls returns a new dataset without the rows that contain a null.
func (ds Dataset) DropNulls() Dataset {
	out := make(Dataset, 0, len(ds))
	for _, d := range ds {
		if d.HasNull() || d.ImageID == "" || d.City == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Images returns the distinct image ids in first-seen order.
func (ds Dataset) Images() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, d := range ds {
		if _, ok := seen[d.ImageID]; ok {
			continue
		}
		seen[d.ImageID] = struct{}{}
		ids = append(ids, d.ImageID)
	}
	return ids
}

// ImageSummary is one row of the exported per-image summary.
type ImageSummary struct {
	ImageID      string
	City         string
	Year         int
	InCity       bool
	Cars         int
	TrafficLight int
	Persons      int
}

// Run is a persisted curation pass over a dataset root.
type Run struct {
	ID        int64
	Root      string
	Kept      int
	Removed   int
	CreatedAt time.Time
}
