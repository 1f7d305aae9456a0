package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndGetRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := Run{
		ID:         "run-a",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Dataset:    "house.csv",
		Mode:       "predictive",
		Rows:       60,
		Columns:    4,
		OutputDir:  "Report",
		ReportPath: "Report/analysis_report.txt",
		Target:     "price",
		Task:       "regression",
		Scores: []Score{
			{Model: "Linear Regression", Train: 0.98, Test: 0.97},
			{Model: "Random Forest Regressor", Train: 0.99, Test: 0.9},
		},
	}
	if err := s.InsertRun(ctx, run); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := s.GetRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Dataset != "house.csv" || got.Rows != 60 || got.Task != "regression" || !got.StartedAt.Equal(start) {
		t.Fatalf("unexpected run %+v", got)
	}
	if len(got.Scores) != 2 || got.Scores[1].Model != "Random Forest Regressor" || got.Scores[0].Test != 0.97 {
		t.Fatalf("unexpected scores %+v", got.Scores)
	}
	if len(got.Charts) != 0 {
		t.Fatalf("expected no charts, got %v", got.Charts)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		r := Run{
			ID: id, StartedAt: base, FinishedAt: base.Add(time.Duration(i) * time.Hour),
			Dataset: id + ".csv", Mode: "descriptive", Charts: []string{id + "_histogram.png"},
		}
		if err := s.InsertRun(ctx, r); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Fatalf("unexpected order %+v", runs)
	}
	got, err := s.GetRun(ctx, "old")
	if err != nil || len(got.Charts) != 1 || got.Charts[0] != "old_histogram.png" {
		t.Fatalf("unexpected charts %+v (%v)", got.Charts, err)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := openStore(t)
	if _, err := s.GetRun(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestDuplicateRunRollsBack(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	r := Run{ID: "dup", Mode: "descriptive", Charts: []string{"a.png"}}
	if err := s.InsertRun(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}
	r.Charts = []string{"b.png"}
	if err := s.InsertRun(ctx, r); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	got, err := s.GetRun(ctx, "dup")
	if err != nil || len(got.Charts) != 1 || got.Charts[0] != "a.png" {
		t.Fatalf("failed insert must not leave rows behind: %+v (%v)", got.Charts, err)
	}
}
