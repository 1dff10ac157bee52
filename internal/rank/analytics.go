package rank

import (
	"math"
	"sort"

	"github.com/andresmejia3/streetcurate/internal/types"
)

// ObjectCount is the number of detections of one class.
type ObjectCount struct {
	ClassID   int64
	ClassName string
	Count     int
}

// CityYearCount is the number of detections of a class in one city and year.
type CityYearCount struct {
	City  string
	Year  int
	Count int
}

// FilterByConfidence keeps the detections whose confidence is strictly greater
// than conf. Detections without a confidence are dropped.
func FilterByConfidence(data types.Dataset, conf float64) types.Dataset {
	out := make(types.Dataset, 0, len(data))
	for _, d := range data {
		if d.Confidence.Valid && d.Confidence.Float64 > conf {
			out = append(out, d)
		}
	}
	return out
}

// CountObjects counts detections per class, most frequent first. Equal counts
// are ordered by class id. Detections missing the id or the name are skipped.
func CountObjects(data types.Dataset) []ObjectCount {
	type key struct {
		id   int64
		name string
	}
	freq := make(map[key]int)
	for _, d := range data {
		if !d.ClassID.Valid || !d.ClassName.Valid {
			continue
		}
		freq[key{d.ClassID.Int64, d.ClassName.String}]++
	}

	out := make([]ObjectCount, 0, len(freq))
	for k, n := range freq {
		out = append(out, ObjectCount{ClassID: k.id, ClassName: k.name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].ClassID != out[j].ClassID {
			return out[i].ClassID < out[j].ClassID
		}
		return out[i].ClassName < out[j].ClassName
	})
	return out
}

// ObjectsPerImage is the mean number of detections per image, rounded to the
// nearest integer with halves going to the even neighbour.
func ObjectsPerImage(data types.Dataset) int {
	images := len(data.Images())
	if images == 0 {
		return 0
	}
	return int(math.RoundToEven(float64(len(data)) / float64(images)))
}

// CarsByCityYear counts car detections per city and year.
func CarsByCityYear(data types.Dataset) []CityYearCount {
	return ClassByCityYear(data, "car")
}

// ClassByCityYear counts the detections of class per city and year, sorted by
// city then year. Detections without a date are skipped.
func ClassByCityYear(data types.Dataset, class string) []CityYearCount {
	type key struct {
		city string
		year int
	}
	freq := make(map[key]int)
	for _, d := range data {
		if !d.ClassName.Valid || d.ClassName.String != class || !d.Date.Valid {
			continue
		}
		freq[key{d.City, d.Date.Time.Year()}]++
	}

	out := make([]CityYearCount, 0, len(freq))
	for k, n := range freq {
		out = append(out, CityYearCount{City: k.city, Year: k.year, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].City != out[j].City {
			return out[i].City < out[j].City
		}
		return out[i].Year < out[j].Year
	})
	return out
}
