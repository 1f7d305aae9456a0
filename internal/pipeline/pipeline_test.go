package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/dataloom-cli/internal/analysis"
	"github.com/KaramelBytes/dataloom-cli/internal/charts"
	"github.com/KaramelBytes/dataloom-cli/internal/cleaning"
	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
	"github.com/KaramelBytes/dataloom-cli/internal/history"
	"github.com/KaramelBytes/dataloom-cli/internal/report"
)

func writeSignups(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("age,city,signup_date\n")
	cities := []string{"Paris", "Lyon", "Paris", "Nice", "Lyon", "Paris", "Nice", "Paris", "Lyon", "Paris"}
	for i := 0; i < 10; i++ {
		age := fmt.Sprint(20 + i*3)
		if i == 4 {
			age = "NA"
		}
		fmt.Fprintf(&b, "%s,%s,2024-03-%02d\n", age, cities[i], i+1)
	}
	p := filepath.Join(dir, "signups.csv")
	if err := os.WriteFile(p, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunDescriptive(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "Report")
	db := filepath.Join(dir, "history.db")
	wrapped := 0
	res, err := Run(context.Background(), Options{
		Path:        writeSignups(t, dir),
		Cleaning:    cleaning.Options{Mode: cleaning.ModeDefault, OutlierMultiplier: 1.5},
		Mode:        "1",
		TopN:        2,
		OutputDir:   out,
		ChartFormat: "png",
		HistoryDB:   db,
		WrapRenderer: func(r charts.Renderer, total int) charts.Renderer {
			wrapped = total
			return r
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Charts) != 5 || wrapped != 5 {
		t.Fatalf("expected 5 charts, got %v (wrapped %d)", res.Charts, wrapped)
	}
	for _, p := range append([]string{res.ReportPath, res.SnapshotPath}, res.Charts...) {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing output %s: %v", p, err)
		}
	}
	b, err := os.ReadFile(res.ReportPath)
	if err != nil {
		t.Fatal(err)
	}
	text := string(b)
	for _, want := range []string{"Descriptive Statistics:\nage:", "Chart 'signup_date_line_chart' has been generated and saved.", "Run: " + res.Manifest.ID} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
	m, err := report.LoadManifest(out)
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if m.ID != res.Manifest.ID || m.Settings.Mode != "descriptive" || len(m.Charts) != 5 {
		t.Fatalf("unexpected manifest %+v", m)
	}

	store, err := history.Open(db)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	run, err := store.GetRun(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if run.Mode != "descriptive" || len(run.Charts) != 5 || run.Rows != 10 {
		t.Fatalf("unexpected history run %+v", run)
	}
}

func TestRunPredictive(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("area,district,price\n")
	for i := 0; i < 30; i++ {
		area := 40 + (i*7)%50
		d := []string{"north", "south"}[i%2]
		fmt.Fprintf(&b, "%d,%s,%d\n", area, d, 3*area+40*(i%2))
	}
	p := filepath.Join(dir, "houses.csv")
	if err := os.WriteFile(p, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	opt := analysis.DefaultPredictOptions()
	opt.NEstimators = 10
	res, err := Run(context.Background(), Options{
		Path:      p,
		Mode:      "predictive",
		Target:    "price",
		Task:      "regression",
		Predict:   opt,
		OutputDir: filepath.Join(dir, "out"),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Predict == nil || len(res.Predict.Scores) != 2 || len(res.Charts) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	text, _ := os.ReadFile(res.ReportPath)
	if !strings.Contains(string(text), "Model Performance (regression, target: price):") {
		t.Fatalf("unexpected report:\n%s", text)
	}
}

func TestRunInvalidModeWritesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "Report")
	_, err := Run(context.Background(), Options{Path: writeSignups(t, dir), Mode: "3", TopN: 2, OutputDir: out})
	if !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("output dir must not be created, stat err=%v", err)
	}
}

func TestRunMissingTarget(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), Options{
		Path: writeSignups(t, dir), Mode: Predictive, Target: "salary", Task: analysis.Regression,
		OutputDir: filepath.Join(dir, "out"),
	})
	if !errors.Is(err, dataset.ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Options{Path: writeSignups(t, dir), Mode: Descriptive, TopN: 2, OutputDir: filepath.Join(dir, "out")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"1": Descriptive, "2": Predictive, "Descriptive": Descriptive, " predictive ": Predictive} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("0"); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}
