package cleaning

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
)

func fixture(t *testing.T, records [][]string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRecords("fixture.csv", records)
	if err != nil {
		t.Fatalf("from records: %v", err)
	}
	return ds
}

func TestCleanDropsMostlyMissingColumns(t *testing.T) {
	ds := fixture(t, [][]string{
		{"a", "b", "c"},
		{"1", "", "x"},
		{"2", "", "y"},
		{"3", "5", "x"},
		{"4", "6", ""},
	})
	rep, err := Clean(ds, Options{})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if _, ok := ds.Column("b"); ok {
		t.Fatalf("column b at 50%% missing should be dropped")
	}
	if got := rep.Dropped(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("unexpected dropped list %v", got)
	}
	if rep.InputColumns != 3 || rep.OutputColumns != 2 {
		t.Fatalf("unexpected column counts %d -> %d", rep.InputColumns, rep.OutputColumns)
	}
	c, _ := ds.Column("c")
	if c.Strs[3] != "x" {
		t.Fatalf("categorical default should fill with mode, got %q", c.Strs[3])
	}
}

func TestCleanDefaultMeanImpute(t *testing.T) {
	ds := fixture(t, [][]string{{"v"}, {"1"}, {""}, {"3"}, {"8"}})
	rep, err := Clean(ds, Options{Mode: ModeDefault})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	c, _ := ds.Column("v")
	if c.Nums[1] != 4 {
		t.Fatalf("expected mean fill 4, got %v", c.Nums[1])
	}
	d, _ := rep.Decision("v")
	if d.Strategy != Mean || d.Missing != 1 || d.Fill != "4" {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestCleanCustomMedianAndFallback(t *testing.T) {
	ds := fixture(t, [][]string{
		{"v", "city"},
		{"1", "Paris"},
		{"", "Lyon"},
		{"3", ""},
		{"100", "Paris"},
	})
	rep, err := Clean(ds, Options{Mode: ModeCustom, Impute: Median})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	v, _ := ds.Column("v")
	if v.Nums[1] != 3 {
		t.Fatalf("expected median fill 3, got %v", v.Nums[1])
	}
	city, _ := ds.Column("city")
	if city.Strs[2] != "Paris" {
		t.Fatalf("expected mode fallback Paris, got %q", city.Strs[2])
	}
	d, _ := rep.Decision("city")
	if d.Strategy != Most || !d.Fallback {
		t.Fatalf("expected recorded fallback, got %+v", d)
	}
}

func TestCleanTemporalMeanImpute(t *testing.T) {
	ds := fixture(t, [][]string{{"when"}, {"2024-01-01"}, {""}, {"2024-01-03"}})
	if _, err := Clean(ds, Options{}); err != nil {
		t.Fatalf("clean: %v", err)
	}
	c, _ := ds.Column("when")
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !c.Times[1].Equal(want) {
		t.Fatalf("expected %v, got %v", want, c.Times[1])
	}
}

func TestCleanClipsOutliers(t *testing.T) {
	ds := fixture(t, [][]string{{"v"}, {"1"}, {"2"}, {"3"}, {"4"}, {"5"}, {"6"}, {"7"}, {"8"}, {"100"}})
	rep, err := Clean(ds, Options{OutlierMultiplier: 1.5})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	d, _ := rep.Decision("v")
	// q1=3, q3=7, iqr=4
	if !d.ClipApplied || d.Lower != -3 || d.Upper != 13 || d.Clipped != 1 {
		t.Fatalf("unexpected clip decision %+v", d)
	}
	c, _ := ds.Column("v")
	if c.Nums[8] != 13 {
		t.Fatalf("expected 100 clipped to 13, got %v", c.Nums[8])
	}
}

func TestCleanZeroMultiplierLeavesValues(t *testing.T) {
	ds := fixture(t, [][]string{{"v"}, {"0.1"}, {"0.2"}, {"1e9"}})
	before := append([]float64(nil), ds.Columns[0].Nums...)
	rep, err := Clean(ds, Options{OutlierMultiplier: 0})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	for i, v := range ds.Columns[0].Nums {
		if math.Float64bits(v) != math.Float64bits(before[i]) {
			t.Fatalf("value %d changed: %v -> %v", i, before[i], v)
		}
	}
	if d, _ := rep.Decision("v"); d.ClipApplied {
		t.Fatalf("clipping must be disabled at multiplier 0")
	}
}

func TestCleanZeroIQRClampsToConstant(t *testing.T) {
	ds := fixture(t, [][]string{{"v"}, {"5"}, {"5"}, {"5"}, {"5"}, {"5"}, {"100"}})
	if _, err := Clean(ds, Options{OutlierMultiplier: 3}); err != nil {
		t.Fatalf("clean: %v", err)
	}
	for _, v := range ds.Columns[0].Nums {
		if v != 5 {
			t.Fatalf("expected every value clamped to 5, got %v", ds.Columns[0].Nums)
		}
	}
}

func TestCleanSnapshot(t *testing.T) {
	dir := t.TempDir()
	ds := fixture(t, [][]string{{"v", "w"}, {"1", "a"}, {"", "b"}, {"3", "a"}})
	out := filepath.Join(dir, "Report", "cleaned.csv")
	rep, err := Clean(ds, Options{SnapshotPath: out})
	if err != nil || rep.SnapshotErr != nil {
		t.Fatalf("clean: %v / %v", err, rep.SnapshotErr)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(b) != "v,w\n1,a\n2,b\n3,a\n" {
		t.Fatalf("unexpected snapshot:\n%s", b)
	}
}

func TestCleanSnapshotFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ds := fixture(t, [][]string{{"v"}, {"1"}, {""}, {"3"}})
	rep, err := Clean(ds, Options{SnapshotPath: filepath.Join(blocker, "cleaned.csv")})
	if err != nil {
		t.Fatalf("snapshot failure must not fail cleaning: %v", err)
	}
	if rep.SnapshotErr == nil {
		t.Fatalf("expected snapshot error to be recorded")
	}
	if ds.Columns[0].Nums[1] != 2 {
		t.Fatalf("cleaned data should still be available, got %v", ds.Columns[0].Nums)
	}
}

func TestCleanRejectsUnknownOptions(t *testing.T) {
	ds := fixture(t, [][]string{{"v"}, {"1"}})
	if _, err := Clean(ds, Options{Mode: ModeCustom, Impute: "zero"}); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
	if _, err := Clean(ds, Options{Mode: "auto"}); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
	if s, err := ParseStrategy("most_frequent"); err != nil || s != Most {
		t.Fatalf("most_frequent should map to mode, got %q %v", s, err)
	}
}
