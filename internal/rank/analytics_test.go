package rank

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/andresmejia3/streetcurate/internal/types"
)

func row(image, city string, year int, id int64, class string, conf float64) types.Detection {
	d := types.Detection{
		ImageID:    image,
		City:       city,
		ClassID:    sql.NullInt64{Int64: id, Valid: true},
		ClassName:  sql.NullString{String: class, Valid: true},
		Confidence: sql.NullFloat64{Float64: conf, Valid: true},
	}
	if year > 0 {
		d.Date = sql.NullTime{Time: time.Date(year, 3, 14, 0, 0, 0, 0, time.UTC), Valid: true}
	}
	return d
}

func sample() types.Dataset {
	return types.Dataset{
		row("berlin_1", "berlin", 2018, 2, "car", 0.9),
		row("berlin_1", "berlin", 2018, 2, "car", 0.4),
		row("berlin_1", "berlin", 2018, 0, "person", 0.7),
		row("berlin_2", "berlin", 2019, 2, "car", 0.8),
		row("bonn_1", "bonn", 2016, 9, "traffic light", 0.5),
		row("bonn_1", "bonn", 2016, 2, "car", 0.41),
		row("aachen_1", "aachen", 0, 2, "car", 0.6),
	}
}

func TestFilterByConfidence(t *testing.T) {
	data := sample()
	data = append(data, types.Detection{ImageID: "x", City: "x"})

	got := FilterByConfidence(data, 0.4)
	if len(got) != 6 {
		t.Fatalf("kept %d rows, want 6", len(got))
	}
	for _, d := range got {
		if !d.Confidence.Valid || d.Confidence.Float64 <= 0.4 {
			t.Errorf("row with confidence %v survived", d.Confidence)
		}
	}
	if len(FilterByConfidence(data, 1)) != 0 {
		t.Error("threshold 1 should keep nothing")
	}
}

func TestCountObjects(t *testing.T) {
	data := sample()
	data = append(data, row("bonn_1", "bonn", 2016, 0, "person", 0.9))
	data = append(data, types.Detection{ImageID: "bonn_1"})

	want := []ObjectCount{
		{ClassID: 2, ClassName: "car", Count: 5},
		{ClassID: 0, ClassName: "person", Count: 2},
		{ClassID: 9, ClassName: "traffic light", Count: 1},
	}
	if got := CountObjects(data); !reflect.DeepEqual(got, want) {
		t.Errorf("CountObjects() = %v, want %v", got, want)
	}
}

func TestObjectsPerImage(t *testing.T) {
	tests := []struct {
		name string
		data types.Dataset
		want int
	}{
		{"empty", nil, 0},
		{"sample", sample(), 2},
		{"half rounds to even below", types.Dataset{
			row("a", "x", 0, 1, "car", 1), row("a", "x", 0, 1, "car", 1), row("a", "x", 0, 1, "car", 1),
			row("b", "x", 0, 1, "car", 1), row("b", "x", 0, 1, "car", 1),
			row("c", "x", 0, 1, "car", 1), row("c", "x", 0, 1, "car", 1),
			row("d", "x", 0, 1, "car", 1), row("d", "x", 0, 1, "car", 1), row("d", "x", 0, 1, "car", 1),
		}, 2},
		{"five over two", types.Dataset{
			row("a", "x", 0, 1, "car", 1), row("a", "x", 0, 1, "car", 1), row("a", "x", 0, 1, "car", 1),
			row("b", "x", 0, 1, "car", 1), row("b", "x", 0, 1, "car", 1),
		}, 2},
		{"half rounds to even above", types.Dataset{
			row("a", "x", 0, 1, "car", 1), row("a", "x", 0, 1, "car", 1), row("a", "x", 0, 1, "car", 1),
			row("a", "x", 0, 1, "car", 1),
			row("b", "x", 0, 1, "car", 1), row("b", "x", 0, 1, "car", 1), row("b", "x", 0, 1, "car", 1),
		}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ObjectsPerImage(tt.data); got != tt.want {
				t.Errorf("ObjectsPerImage() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCarsByCityYear(t *testing.T) {
	want := []CityYearCount{
		{City: "berlin", Year: 2018, Count: 2},
		{City: "berlin", Year: 2019, Count: 1},
		{City: "bonn", Year: 2016, Count: 1},
	}
	if got := CarsByCityYear(sample()); !reflect.DeepEqual(got, want) {
		t.Errorf("CarsByCityYear() = %v, want %v", got, want)
	}
}
