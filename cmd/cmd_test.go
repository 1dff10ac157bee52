package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresmejia3/streetcurate/internal/store"
	"github.com/andresmejia3/streetcurate/internal/utils"
	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so executions do not leak
// state into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := imaging.Save(imaging.New(w, h, color.NRGBA{60, 60, 60, 255}), path); err != nil {
		t.Fatalf("failed to save %s: %v", path, err)
	}
}

const (
	berlin = "berlin_000000_000019_leftImg8bit_20-10-2018"
	bonn   = "bonn_000015_000019_leftImg8bit_14-03-2016"
	zurich = "zurich_000101_000019_leftImg8bit_02-05-2019"
)

// fixture writes a three-image dataset and a config file with a 64x32
// profile. Bonn's image is the wrong size; Zurich's labels are malformed.
func fixture(t *testing.T) (root, configFile string) {
	t.Helper()
	dir := t.TempDir()
	root = filepath.Join(dir, "dataset_cities")

	writeFile(t, filepath.Join(root, "class_name.txt"), "0 person\n2 car\n9 traffic light\n")

	writeImage(t, filepath.Join(root, "images", berlin+".png"), 64, 32)
	writeFile(t, filepath.Join(root, "labels", berlin+".txt"),
		"2 0.5 0.5 0.1 0.1 0.9\n2 0.4 0.4 0.1 0.1 0.8\n0 0.2 0.2 0.1 0.1 0.7\n9 0.1 0.1 0.1 0.1 0.3\n")

	writeImage(t, filepath.Join(root, "images", bonn+".png"), 48, 32)
	writeFile(t, filepath.Join(root, "labels", bonn+".txt"), "2 0.5 0.5 0.1 0.1 0.9\n")

	writeImage(t, filepath.Join(root, "images", zurich+".png"), 64, 32)
	writeFile(t, filepath.Join(root, "labels", zurich+".txt"), "2 0.5 0.5 0.1 0.1 1.5\n0 0.5 0.5 0.1 0.1 0.9\n")

	configFile = filepath.Join(dir, "streetcurate.yaml")
	writeFile(t, configFile, "root: "+root+"\nprofile:\n  width: 64\n  height: 32\n  format: png\n  mode: rgb\n")
	return root, configFile
}

func TestValidateCommand(t *testing.T) {
	root, _ := fixture(t)
	good := filepath.Join(root, "labels", berlin+".txt")
	bad := filepath.Join(root, "labels", zurich+".txt")

	stdout, _, err := execute(t, "", "validate", good)
	if err != nil {
		t.Fatalf("validate of a valid file failed: %v", err)
	}
	if !strings.Contains(stdout, "OK") {
		t.Errorf("expected OK status, got:\n%s", stdout)
	}

	stdout, stderr, err := execute(t, "", "validate", good, bad)
	if err == nil {
		t.Fatal("expected an error when a file is invalid")
	}
	if !strings.Contains(stdout, "INVALID") {
		t.Errorf("expected INVALID status, got:\n%s", stdout)
	}
	if !strings.Contains(stderr, "1.5") {
		t.Errorf("expected the offending token in the log, got:\n%s", stderr)
	}

	_, _, err = execute(t, "", "validate", filepath.Join(root, "labels", "missing.txt"))
	if !errors.Is(err, utils.ErrPathNotFound) {
		t.Errorf("missing file: error = %v, want ErrPathNotFound", err)
	}
}

func TestCurateAndRuns(t *testing.T) {
	_, configFile := fixture(t)
	dbPath := filepath.Join(t.TempDir(), "streetcurate.db")

	_, stderr, err := execute(t, "", "curate", "--config", configFile, "--save", "--db", dbPath)
	if err != nil {
		t.Fatalf("curate failed: %v\n%s", err, stderr)
	}
	for _, want := range []string{"Rows removed:        2", "Rows kept:           5", "Saved run 1"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("curate output missing %q:\n%s", want, stderr)
		}
	}

	stdout, _, err := execute(t, "", "runs", "--db", dbPath)
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	if !strings.Contains(stdout, "dataset_cities") || strings.Count(stdout, "\n") != 3 {
		t.Errorf("expected one stored run, got:\n%s", stdout)
	}
}

func TestAnomaliesAndInCity(t *testing.T) {
	_, configFile := fixture(t)

	stdout, _, err := execute(t, "", "anomalies", "--config", configFile)
	if err != nil {
		t.Fatalf("anomalies failed: %v", err)
	}
	if !strings.Contains(stdout, bonn+".png") || strings.Contains(stdout, berlin) {
		t.Errorf("expected only the bonn image, got:\n%s", stdout)
	}

	tests := []struct {
		image string
		want  string
	}{
		{berlin, "true"},
		{bonn + ".png", "false"},
	}
	for _, tt := range tests {
		stdout, _, err := execute(t, "", "incity", "--config", configFile, tt.image)
		if err != nil {
			t.Fatalf("incity %s failed: %v", tt.image, err)
		}
		if !strings.HasSuffix(strings.TrimSpace(stdout), tt.want) {
			t.Errorf("incity %s = %q, want %s", tt.image, stdout, tt.want)
		}
	}
}

func TestRankCommand(t *testing.T) {
	_, configFile := fixture(t)

	stdout, _, err := execute(t, "", "rank", "--config", configFile, "--conf", "0.4")
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}
	for _, want := range []string{"Objects per image: 2", "car", "person", "berlin"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("rank output missing %q:\n%s", want, stdout)
		}
	}
	// The 0.3 traffic light is filtered out.
	if strings.Contains(stdout, "traffic light") {
		t.Errorf("low-confidence detection leaked into the ranking:\n%s", stdout)
	}

	if _, _, err := execute(t, "", "rank", "--config", configFile, "--top", "0"); err == nil {
		t.Error("expected an error for --top 0")
	}
}

func TestExportCommand(t *testing.T) {
	_, configFile := fixture(t)
	outDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "export.db")

	stdout, stderr, err := execute(t, "", "export", "--config", configFile, "--out", outDir, "--file", "summary.csv", "--save", "--db", dbPath)
	if err != nil {
		t.Fatalf("export failed: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "summary.csv") {
		t.Errorf("expected a confirmation naming the file, got %q", stdout)
	}

	f, err := os.Open(filepath.Join(outDir, "summary.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"image_id", "city", "year", "in_city", "car", "traffic light", "person"},
		{berlin, "berlin", "2018", "true", "2", "0", "1"},
		{bonn, "bonn", "2016", "false", "1", "0", "0"},
	}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d: %v", len(records), len(want), records)
	}
	for i := range want {
		if strings.Join(records[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("record %d = %v, want %v", i, records[i], want[i])
		}
	}

	// The saved run holds the filtered detections and counts exactly those.
	db, err := store.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close(context.Background())
	runs, err := db.ListRuns(context.Background())
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns() = %v, %v; want one run", runs, err)
	}
	saved, err := db.LoadDetections(context.Background(), runs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].Kept != len(saved) || len(saved) != 4 {
		t.Errorf("run kept = %d with %d stored detections, want 4 and 4", runs[0].Kept, len(saved))
	}

	if _, _, err := execute(t, "", "export", "--config", configFile, "--out", filepath.Join(outDir, "missing")); !errors.Is(err, utils.ErrPathNotFound) {
		t.Errorf("missing output folder: error = %v, want ErrPathNotFound", err)
	}
}

func TestResetCommand(t *testing.T) {
	_, configFile := fixture(t)
	dbPath := filepath.Join(t.TempDir(), "reset.db")

	if _, _, err := execute(t, "", "curate", "--config", configFile, "--save", "--db", dbPath); err != nil {
		t.Fatalf("curate failed: %v", err)
	}

	stdout, _, err := execute(t, "n\n", "reset", "--db", dbPath)
	if err != nil || !strings.Contains(stdout, "Aborted.") {
		t.Fatalf("declined reset: err=%v out=%q", err, stdout)
	}

	if _, _, err := execute(t, "", "reset", "--db", dbPath, "--yes"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	// The schema is migrated again on the next connection, empty.
	stdout, _, err = execute(t, "", "runs", "--db", dbPath)
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	if !strings.Contains(stdout, "No runs found") {
		t.Errorf("expected no runs after reset, got:\n%s", stdout)
	}
}

func TestCommandErrors(t *testing.T) {
	if _, _, err := execute(t, "", "runs"); err == nil || !strings.Contains(err.Error(), "no database configured") {
		t.Errorf("runs without --db: error = %v", err)
	}

	_, _, err := execute(t, "", "curate", "--root", filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, utils.ErrPathNotFound) {
		t.Errorf("missing root: error = %v, want ErrPathNotFound", err)
	}

	if _, _, err := execute(t, "", "rank", "--conf", "1.5"); err == nil {
		t.Error("expected a config error for --conf 1.5")
	}
}
