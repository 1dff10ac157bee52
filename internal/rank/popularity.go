// Package rank turns curated detections into rankings: which classes dominate
// each image, and how objects distribute over classes, cities and years.
package rank

import (
	"sort"

	"github.com/andresmejia3/streetcurate/internal/types"
)

// MaxCredited is the number of classes an image credits when its ranking has
// no tie across the cutoff.
const MaxCredited = 3

// ClassCount pairs a class name with a count.
type ClassCount struct {
	Name  string
	Count int
}

// Tally accumulates popularity credits per class. The zero value is not
// usable, use NewTally.
type Tally struct {
	counts map[string]int
	order  []string
}

func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Add credits one vote to class.
func (t *Tally) Add(class string) {
	if _, ok := t.counts[class]; !ok {
		t.order = append(t.order, class)
	}
	t.counts[class]++
}

// Get returns the credits of class, zero if it was never credited.
func (t *Tally) Get(class string) int {
	return t.counts[class]
}

func (t *Tally) Len() int {
	return len(t.order)
}

// Sorted returns the tally by descending count. Equal counts keep the order
// in which the classes were first credited.
func (t *Tally) Sorted() []ClassCount {
	out := make([]ClassCount, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, ClassCount{Name: name, Count: t.counts[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Popular returns the classes credited by one image. counts must be ordered
// by descending count.
func Popular(counts []ClassCount) []string {
	k := creditedPrefix(counts)
	names := make([]string, k)
	for i := 0; i < k; i++ {
		names[i] = counts[i].Name
	}
	return names
}

// creditedPrefix returns how many leading classes of a sorted ranking are
// credited. A tie across the cutoff is trimmed back to the last rank that is
// unambiguous.
func creditedPrefix(c []ClassCount) int {
	n := len(c)
	if n <= MaxCredited {
		return n
	}

	top := 1
	for top < n && c[top].Count == c[0].Count {
		top++
	}
	switch {
	case top > MaxCredited:
		return top
	case c[2].Count != c[3].Count:
		return 3
	case c[1].Count != c[3].Count:
		return 2
	default:
		// Ranks 2, 3 and 4 tie: only the leader is unambiguous.
		return 1
	}
}

// rankImage counts the detections of one image per class, most frequent
// first with ties in alphabetical order.
func rankImage(classes []string) []ClassCount {
	freq := make(map[string]int)
	for _, c := range classes {
		freq[c]++
	}
	counts := make([]ClassCount, 0, len(freq))
	for name, n := range freq {
		counts = append(counts, ClassCount{Name: name, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].Name < counts[j].Name
	})
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

// PopularObjects credits, for every image, the classes that dominate it and
// aggregates the credits over the dataset. Images are visited in ascending id
// order. Detections without a class name are ignored.
func PopularObjects(data types.Dataset) *Tally {
	byImage := make(map[string][]string)
	for _, d := range data {
		if !d.ClassName.Valid {
			continue
		}
		byImage[d.ImageID] = append(byImage[d.ImageID], d.ClassName.String)
	}

	images := make([]string, 0, len(byImage))
	for id := range byImage {
		images = append(images, id)
	}
	sort.Strings(images)

	tally := NewTally()
	for _, id := range images {
		for _, class := range Popular(rankImage(byImage[id])) {
			tally.Add(class)
		}
	}
	return tally
}
