package report_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/dataloom-cli/internal/analysis"
	"github.com/KaramelBytes/dataloom-cli/internal/cleaning"
	"github.com/KaramelBytes/dataloom-cli/internal/report"
)

func TestRenderDescriptive(t *testing.T) {
	doc := report.Document{
		RunID:   "run-1",
		Dataset: "signups.csv",
		Rows:    10,
		Columns: 3,
		Cleaning: &cleaning.Report{Columns: []cleaning.ColumnDecision{
			{Column: "age", Missing: 1, MissingRatio: 0.1, Strategy: cleaning.Mean, Clipped: 2, ClipApplied: true, Lower: 1, Upper: 9.5},
			{Column: "notes", Missing: 6, MissingRatio: 0.6, Dropped: true},
			{Column: "city"},
		}},
		Summary: &analysis.Summary{Stats: []analysis.ColumnStats{
			{Name: "age", Count: 10, Mean: 33.5, Std: 9.08, Min: 20, Q25: 26.75, Q50: 33.5, Q75: 40.25, Max: 47},
		}},
		Charts: []string{filepath.Join("Report", "age_histogram.png")},
	}
	got := report.Render(doc)
	for _, want := range []string{
		"Analysis Report\n====================\n\n",
		"Run: run-1\n",
		"Dataset: signups.csv (10 rows, 3 columns)\n",
		"Cleaning Summary:\n",
		"  age: imputed with mean (missing 10.0%)\n",
		"  age: clipped 2 value(s) to [1.00, 9.50]\n",
		"  notes: dropped (missing 60.0%)\n",
		"Descriptive Statistics:\nage:\n  count: 10.00\n  mean: 33.50\n",
		"  25%: 26.75\n",
		"Charts Generated:\nChart 'age_histogram' has been generated and saved.\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("report missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "city:") {
		t.Fatalf("untouched columns should not appear in the cleaning summary:\n%s", got)
	}
	if strings.Contains(got, "Model Performance") {
		t.Fatalf("descriptive report should not list models")
	}
}

func TestRenderPredictive(t *testing.T) {
	doc := report.Document{
		Predict: &analysis.PredictResult{
			Task:   analysis.Regression,
			Target: "price",
			Scores: []analysis.ModelScore{
				{Name: analysis.ModelLinearRegression, Train: 0.951, Test: 0.912},
				{Name: analysis.ModelRandomForestRegressor, Train: 0.99, Test: 0.85},
			},
		},
	}
	got := report.Render(doc)
	want := "Model Performance (regression, target: price):\n" +
		"Linear Regression:\n  train_score: 0.95\n  test_score: 0.91\n" +
		"Random Forest Regressor:\n  train_score: 0.99\n  test_score: 0.85\n"
	if !strings.Contains(got, want) {
		t.Fatalf("unexpected predictive section:\n%s", got)
	}
	if strings.Contains(got, "Charts Generated") || strings.Contains(got, "Cleaning Summary") {
		t.Fatalf("empty sections should be omitted:\n%s", got)
	}
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := report.Write(dir, "", report.Document{Dataset: "d.csv"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if path != filepath.Join(dir, report.DefaultFileName) {
		t.Fatalf("unexpected path %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil || !strings.HasPrefix(string(b), "Analysis Report") {
		t.Fatalf("unexpected report content %q (%v)", b, err)
	}
}

func TestManifestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	m := report.NewManifest("d.csv", dir, report.Settings{Mode: "descriptive", Cleaning: "default", IQR: 1.5, TopN: 5})
	if m.ID == "" {
		t.Fatalf("expected a run id")
	}
	m.SetSummary(&analysis.Summary{Stats: []analysis.ColumnStats{{Name: "x", Count: 1, Mean: 2, Std: math.NaN()}}})
	m.Charts = []string{"x_histogram.png"}
	if err := m.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := report.LoadManifest(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != m.ID || got.Settings.TopN != 5 || got.RootDir() != dir || len(got.Charts) != 1 {
		t.Fatalf("unexpected manifest %+v", got)
	}
	if got.Stats[0].Values["std"] != nil || *got.Stats[0].Values["mean"] != 2 {
		t.Fatalf("expected null std and mean 2, got %+v", got.Stats[0].Values)
	}
	if _, err := report.LoadManifest(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing manifest")
	}
}
