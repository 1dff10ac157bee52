package rank

import (
	"database/sql"
	"reflect"
	"testing"

	"github.com/andresmejia3/streetcurate/internal/types"
)

func det(image, class string) types.Detection {
	return types.Detection{
		ImageID:   image,
		City:      "berlin",
		ClassName: sql.NullString{String: class, Valid: true},
	}
}

// image repeats each class name as many times as its count.
func image(id string, counts ...ClassCount) types.Dataset {
	var ds types.Dataset
	for _, c := range counts {
		for i := 0; i < c.Count; i++ {
			ds = append(ds, det(id, c.Name))
		}
	}
	return ds
}

func cc(name string, n int) ClassCount { return ClassCount{Name: name, Count: n} }

func TestPopular(t *testing.T) {
	tests := []struct {
		name   string
		counts []ClassCount
		want   []string
	}{
		{"empty", nil, []string{}},
		{"single class", []ClassCount{cc("car", 7)}, []string{"car"}},
		{"three classes", []ClassCount{cc("a", 4), cc("b", 4), cc("c", 2)}, []string{"a", "b", "c"}},
		{"top tier above three", []ClassCount{cc("a", 4), cc("b", 4), cc("c", 4), cc("d", 4), cc("e", 1)}, []string{"a", "b", "c", "d"}},
		{"no tie at the cutoff", []ClassCount{cc("a", 5), cc("b", 4), cc("c", 4), cc("d", 2), cc("e", 1)}, []string{"a", "b", "c"}},
		{"tie at ranks 3 and 4", []ClassCount{cc("a", 4), cc("b", 4), cc("c", 2), cc("d", 2), cc("e", 1)}, []string{"a", "b"}},
		{"tie from rank 2", []ClassCount{cc("a", 4), cc("b", 2), cc("c", 2), cc("d", 2), cc("e", 1)}, []string{"a"}},
		{"top tier of exactly three", []ClassCount{cc("a", 3), cc("b", 3), cc("c", 3), cc("d", 1)}, []string{"a", "b", "c"}},
		{"everything ties", []ClassCount{cc("a", 1), cc("b", 1), cc("c", 1), cc("d", 1)}, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Popular(tt.counts); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Popular() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPopularObjects_Scenario(t *testing.T) {
	var data types.Dataset
	data = append(data, image("img_1", cc("gatos", 4), cc("patos", 4), cc("perros", 4), cc("ratas", 4), cc("zorros", 1))...)
	data = append(data, image("img_2", cc("gatos", 5), cc("perros", 4), cc("patos", 4), cc("ratas", 2), cc("zorros", 1))...)
	data = append(data, image("img_3", cc("gatos", 4), cc("perros", 4), cc("patos", 2), cc("ratas", 2), cc("zorros", 1))...)
	data = append(data, image("img_4", cc("gatos", 4), cc("perros", 2), cc("patos", 2), cc("ratas", 2), cc("zorros", 1))...)
	data = append(data, image("img_5", cc("gatos", 4), cc("perros", 4), cc("patos", 2))...)

	got := PopularObjects(data).Sorted()
	want := []ClassCount{cc("gatos", 5), cc("perros", 4), cc("patos", 3), cc("ratas", 1)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PopularObjects() = %v, want %v", got, want)
	}
}

func TestPopularObjects_OrderIndependent(t *testing.T) {
	a := image("img_a", cc("car", 3), cc("person", 1))
	b := image("img_b", cc("person", 2), cc("bicycle", 1))

	// Rows of different images interleaved in any order give the same tally.
	interleaved := types.Dataset{b[0], a[0], a[1], b[1], a[2], b[2], a[3]}
	grouped := append(append(types.Dataset{}, a...), b...)

	if got, want := PopularObjects(interleaved).Sorted(), PopularObjects(grouped).Sorted(); !reflect.DeepEqual(got, want) {
		t.Errorf("interleaved tally %v differs from grouped tally %v", got, want)
	}
}

func TestPopularObjects_SkipsNullClass(t *testing.T) {
	data := image("img_1", cc("car", 2))
	data = append(data, types.Detection{ImageID: "img_1"}, types.Detection{ImageID: "img_2"})

	tally := PopularObjects(data)
	if tally.Len() != 1 || tally.Get("car") != 1 {
		t.Errorf("unexpected tally %v", tally.Sorted())
	}
}

func TestPopularObjects_Empty(t *testing.T) {
	if got := PopularObjects(nil).Sorted(); len(got) != 0 {
		t.Errorf("PopularObjects(nil) = %v, want empty", got)
	}
}

func TestTally(t *testing.T) {
	tally := NewTally()
	for _, c := range []string{"truck", "car", "bus", "car", "bus", "person"} {
		tally.Add(c)
	}

	want := []ClassCount{cc("car", 2), cc("bus", 2), cc("truck", 1), cc("person", 1)}
	if got := tally.Sorted(); !reflect.DeepEqual(got, want) {
		t.Errorf("Sorted() = %v, want %v", got, want)
	}
	if tally.Get("bicycle") != 0 {
		t.Error("uncredited class should have zero votes")
	}
}

func TestRankImage(t *testing.T) {
	got := rankImage([]string{"person", "car", "bus", "car", "bus", "truck", "car"})
	want := []ClassCount{cc("car", 3), cc("bus", 2), cc("person", 1), cc("truck", 1)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rankImage() = %v, want %v", got, want)
	}
}
