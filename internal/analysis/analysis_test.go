package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
)

func mustDataset(t *testing.T, records [][]string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRecords("fixture.csv", records)
	if err != nil {
		t.Fatalf("from records: %v", err)
	}
	return ds
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestQuantileLinear(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	cases := map[float64]float64{0: 1, 0.25: 1.75, 0.5: 2.5, 0.75: 3.25, 1: 4}
	for q, want := range cases {
		if got := Quantile(s, q); !near(got, want) {
			t.Fatalf("Quantile(%v) = %v, want %v", q, got, want)
		}
	}
	if !math.IsNaN(Quantile(nil, 0.5)) {
		t.Fatalf("expected NaN for empty input")
	}
}

func TestDescribeNumericOnly(t *testing.T) {
	ds := mustDataset(t, [][]string{
		{"x", "label", "y"},
		{"1", "a", "10"},
		{"2", "b", ""},
		{"3", "a", "30"},
		{"4", "c", "20"},
	})
	sum := Describe(ds)
	if len(sum.Stats) != 2 {
		t.Fatalf("expected 2 numeric columns, got %d", len(sum.Stats))
	}
	x := sum.Stats[0]
	if x.Name != "x" || x.Count != 4 || !near(x.Mean, 2.5) || !near(x.Std, math.Sqrt(5.0/3.0)) {
		t.Fatalf("unexpected stats for x: %+v", x)
	}
	if !near(x.Min, 1) || !near(x.Q25, 1.75) || !near(x.Q50, 2.5) || !near(x.Q75, 3.25) || !near(x.Max, 4) {
		t.Fatalf("unexpected quartiles for x: %+v", x)
	}
	y := sum.Stats[1]
	if y.Count != 3 || !near(y.Mean, 20) {
		t.Fatalf("expected missing cell skipped for y: %+v", y)
	}
	if len(x.Values()) != len(StatNames) {
		t.Fatalf("Values and StatNames out of sync")
	}
}

func TestCorrelationPairsDoubledAndOrdered(t *testing.T) {
	ds := mustDataset(t, [][]string{
		{"a", "b", "c"},
		{"1", "2", "5"},
		{"2", "4", "3"},
		{"3", "6", "4"},
		{"4", "8", "1"},
	})
	pairs := Correlate(ds).Pairs()
	if len(pairs) != 6 {
		t.Fatalf("expected 6 ordered pairs, got %d", len(pairs))
	}
	// a and b are perfectly correlated distinct columns and must be kept
	if pairs[0].A != "a" || pairs[0].B != "b" || !near(pairs[0].R, 1) {
		t.Fatalf("expected a~b first, got %+v", pairs[0])
	}
	if pairs[1].A != "b" || pairs[1].B != "a" {
		t.Fatalf("expected mirrored b~a second, got %+v", pairs[1])
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i].R > pairs[i-1].R {
			t.Fatalf("pairs not sorted descending: %+v", pairs)
		}
	}
	for _, p := range pairs {
		if p.A == p.B {
			t.Fatalf("self pair present: %+v", p)
		}
	}
}

func TestCorrelationSkipsConstantColumns(t *testing.T) {
	ds := mustDataset(t, [][]string{
		{"a", "k"},
		{"1", "7"},
		{"2", "7"},
		{"3", "7"},
	})
	if pairs := Correlate(ds).Pairs(); len(pairs) != 0 {
		t.Fatalf("expected undefined correlations skipped, got %+v", pairs)
	}
}

func TestProfileMarkdown(t *testing.T) {
	rows := [][]string{{"date", "plot", "moisture", "yield"}}
	vals := []string{"74", "71", "68", "70", "72", "69", "73", "70", "140"}
	for i, v := range vals {
		plot := "A1"
		if i%3 == 0 {
			plot = "B3"
		}
		rows = append(rows, []string{"2024-08-1" + string(rune('0'+i)), plot, v, v})
	}
	ds := mustDataset(t, rows)
	if err := ds.SetIndex(""); err != nil {
		t.Fatalf("set index: %v", err)
	}
	md := ProfileDataset(ds, DefaultProfileOptions()).Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: fixture.csv",
		"Rows: 9",
		"Index: date",
		"- date: temporal (non-null 9, missing 0.0%) · 2024-08-10 to 2024-08-18",
		"- plot: categorical",
		"top: A1(6), B3(3)",
		"- moisture: numeric",
		"outliers: 1 above |z|>3.5",
		"[CORRELATIONS]",
		"- moisture ~ yield: r=1.000",
		"[HEAD AND SAMPLE ROWS]",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}
