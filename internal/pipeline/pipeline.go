// Package pipeline threads one dataset through loading, cleaning, analysis
// and reporting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/dataloom-cli/internal/analysis"
	"github.com/KaramelBytes/dataloom-cli/internal/charts"
	"github.com/KaramelBytes/dataloom-cli/internal/cleaning"
	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
	"github.com/KaramelBytes/dataloom-cli/internal/history"
	"github.com/KaramelBytes/dataloom-cli/internal/report"
)

// Mode selects the analysis branch.
type Mode string

const (
	Descriptive Mode = "descriptive"
	Predictive  Mode = "predictive"
)

// ErrInvalidMode is returned for an analysis mode other than descriptive or predictive.
var ErrInvalidMode = errors.New("invalid analysis mode selected")

// ParseMode accepts "1", "2", "descriptive" and "predictive".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", string(Descriptive):
		return Descriptive, nil
	case "2", string(Predictive):
		return Predictive, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Options configures one run.
type Options struct {
	Path     string
	Load     dataset.Options
	Cleaning cleaning.Options
	Mode     Mode
	TopN     int

	// Predictive only
	Target  string
	Task    analysis.Task
	Predict analysis.PredictOptions

	OutputDir    string
	ReportFile   string
	SnapshotFile string

	ChartFormat   string
	ChartWidthIn  float64
	ChartHeightIn float64
	// WrapRenderer, when set, decorates the chart renderer (progress output).
	WrapRenderer func(r charts.Renderer, total int) charts.Renderer

	// HistoryDB is the run history database; empty disables history.
	HistoryDB string

	Logger *slog.Logger
}

// Result is what a run produced.
type Result struct {
	Manifest     *report.Manifest
	Dataset      *dataset.Dataset
	Cleaning     *cleaning.Report
	Summary      *analysis.Summary
	Predict      *analysis.PredictResult
	Charts       []string
	ReportPath   string
	SnapshotPath string
	Warnings     []string
}

func (o *Options) normalize() error {
	mode, err := ParseMode(string(o.Mode))
	if err != nil {
		return err
	}
	o.Mode = mode
	if o.Path == "" {
		return errors.New("dataset path is required")
	}
	if o.OutputDir == "" {
		o.OutputDir = "Report"
	}
	if o.ReportFile == "" {
		o.ReportFile = report.DefaultFileName
	}
	if o.SnapshotFile == "" {
		o.SnapshotFile = "cleaned.csv"
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Mode == Predictive {
		if strings.TrimSpace(o.Target) == "" {
			return errors.New("predictive mode needs a target column")
		}
		task, err := analysis.ParseTask(string(o.Task))
		if err != nil {
			return err
		}
		o.Task = task
	} else if o.TopN < 1 {
		return fmt.Errorf("top N must be at least 1, got %d", o.TopN)
	}
	return nil
}

// Run loads, cleans and analyzes the dataset, then writes the report, the
// run manifest and a history entry. Mode and options are validated before
// anything is written.
func Run(ctx context.Context, opt Options) (*Result, error) {
	if err := opt.normalize(); err != nil {
		return nil, err
	}
	log := opt.Logger
	res := &Result{}
	var plotter *charts.PlotRenderer
	if opt.Mode == Descriptive {
		pr, err := charts.NewPlotRenderer(opt.OutputDir, opt.ChartFormat, opt.ChartWidthIn, opt.ChartHeightIn)
		if err != nil {
			return nil, err
		}
		plotter = pr
	}

	log.Debug("loading dataset", "stage", "load", "path", opt.Path)
	ds, err := dataset.Load(opt.Path, opt.Load)
	if err != nil {
		return nil, err
	}
	res.Dataset = ds
	log.Info("dataset loaded", "stage", "load", "rows", ds.Rows(), "columns", len(ds.Columns), "index", ds.Index)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifest := report.NewManifest(filepath.Base(opt.Path), opt.OutputDir, settings(opt))
	res.Manifest = manifest

	copt := opt.Cleaning
	copt.SnapshotPath = filepath.Join(opt.OutputDir, opt.SnapshotFile)
	crep, err := cleaning.Clean(ds, copt)
	if err != nil {
		return nil, err
	}
	res.Cleaning = crep
	if crep.SnapshotErr != nil {
		log.Warn("snapshot not written", "stage", "clean", "err", crep.SnapshotErr)
		res.Warnings = append(res.Warnings, crep.SnapshotErr.Error())
	} else {
		res.SnapshotPath = crep.SnapshotPath
	}
	log.Info("dataset cleaned", "stage", "clean", "rows", ds.Rows(), "columns", len(ds.Columns), "dropped", len(crep.Dropped()))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch opt.Mode {
	case Descriptive:
		res.Summary = analysis.Describe(ds)
		var r charts.Renderer = logRenderer{next: plotter, log: log}
		if opt.WrapRenderer != nil {
			r = opt.WrapRenderer(r, len(charts.Select(ds, opt.TopN)))
		}
		ids, err := charts.SelectAndRender(ctx, ds, opt.TopN, r)
		if err != nil {
			return nil, err
		}
		res.Charts = ids
	case Predictive:
		log.Debug("benchmarking models", "stage", "predict", "target", opt.Target, "task", opt.Task)
		pres, err := analysis.Predict(ds, opt.Target, opt.Task, opt.Predict)
		if err != nil {
			return nil, err
		}
		res.Predict = pres
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := report.Document{
		RunID:    manifest.ID,
		Dataset:  manifest.Dataset,
		Rows:     ds.Rows(),
		Columns:  len(ds.Columns),
		Cleaning: res.Cleaning,
		Summary:  res.Summary,
		Predict:  res.Predict,
		Charts:   res.Charts,
	}
	path, err := report.Write(opt.OutputDir, opt.ReportFile, doc)
	if err != nil {
		return nil, err
	}
	res.ReportPath = path
	log.Info("report written", "stage", "report", "path", path)

	manifest.Rows, manifest.Columns = ds.Rows(), len(ds.Columns)
	manifest.Cleaning = res.Cleaning
	manifest.SetSummary(res.Summary)
	manifest.Predict = res.Predict
	manifest.Charts = res.Charts
	manifest.ReportPath = res.ReportPath
	manifest.Snapshot = res.SnapshotPath
	if err := manifest.Save(); err != nil {
		return nil, fmt.Errorf("save manifest: %w", err)
	}

	if opt.HistoryDB != "" {
		if err := record(ctx, opt, res); err != nil {
			log.Warn("history not recorded", "stage", "history", "err", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("history not recorded: %v", err))
		}
	}
	return res, nil
}

func settings(opt Options) report.Settings {
	s := report.Settings{
		Mode:     string(opt.Mode),
		Cleaning: string(opt.Cleaning.Mode),
		IQR:      opt.Cleaning.OutlierMultiplier,
		Index:    opt.Load.Index,
	}
	if s.Cleaning == "" {
		s.Cleaning = string(cleaning.ModeDefault)
	}
	if opt.Cleaning.Mode == cleaning.ModeCustom {
		s.Impute = string(opt.Cleaning.Impute)
	}
	if opt.Mode == Predictive {
		s.Target = opt.Target
		s.ModelType = string(opt.Task)
		s.TestRatio = opt.Predict.TestRatio
		s.Seed = opt.Predict.Seed
		s.Estimators = opt.Predict.NEstimators
	} else {
		s.TopN = opt.TopN
		s.Format = opt.ChartFormat
	}
	return s
}

func record(ctx context.Context, opt Options, res *Result) error {
	store, err := history.Open(opt.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()
	m := res.Manifest
	run := history.Run{
		ID:         m.ID,
		StartedAt:  m.StartedAt,
		FinishedAt: time.Now(),
		Dataset:    m.Dataset,
		Mode:       string(opt.Mode),
		Rows:       m.Rows,
		Columns:    m.Columns,
		OutputDir:  opt.OutputDir,
		ReportPath: res.ReportPath,
		Charts:     res.Charts,
	}
	if res.Predict != nil {
		run.Target = res.Predict.Target
		run.Task = string(res.Predict.Task)
		for _, s := range res.Predict.Scores {
			run.Scores = append(run.Scores, history.Score{Model: s.Name, Train: s.Train, Test: s.Test})
		}
	}
	return store.InsertRun(ctx, run)
}

// logRenderer logs each rendered chart.
type logRenderer struct {
	next charts.Renderer
	log  *slog.Logger
}

func (l logRenderer) Render(ds *dataset.Dataset, d charts.Descriptor) (string, error) {
	path, err := l.next.Render(ds, d)
	if err != nil {
		return "", err
	}
	l.log.Debug("chart rendered", "stage", "charts", "chart", d.ID, "kind", d.Kind, "path", path)
	return path, nil
}
