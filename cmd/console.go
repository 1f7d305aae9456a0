package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/KaramelBytes/dataloom-cli/internal/analysis"
	"github.com/KaramelBytes/dataloom-cli/internal/charts"
	"github.com/KaramelBytes/dataloom-cli/internal/cleaning"
	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
	"github.com/KaramelBytes/dataloom-cli/internal/history"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	headColor = color.New(color.FgCyan, color.Bold)
)

func success(w io.Writer, format string, a ...any) {
	okColor.Fprintf(w, "✓ "+format+"\n", a...)
}

func warning(w io.Writer, format string, a ...any) {
	warnColor.Fprintf(w, "⚠ Warning: "+format+"\n", a...)
}

func heading(w io.Writer, s string) {
	headColor.Fprintf(w, "\n%s\n", s)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func printCleaning(w io.Writer, rep *cleaning.Report) {
	if rep == nil {
		return
	}
	heading(w, fmt.Sprintf("Cleaning (%d rows, %d -> %d columns)", rep.Rows, rep.InputColumns, rep.OutputColumns))
	t := newTable(w, "Column", "Kind", "Missing", "Action", "Fill", "Clipped")
	for _, d := range rep.Columns {
		action := "kept"
		switch {
		case d.Dropped:
			action = "dropped"
		case d.Strategy != "":
			action = "imputed (" + string(d.Strategy) + ")"
			if d.Fallback {
				action += " *"
			}
		}
		clipped := ""
		if d.ClipApplied {
			clipped = fmt.Sprintf("%d [%s, %s]", d.Clipped, fmtNum(d.Lower), fmtNum(d.Upper))
		}
		t.Append([]string{
			d.Column, string(d.Kind),
			fmt.Sprintf("%d (%.1f%%)", d.Missing, d.MissingRatio*100),
			action, d.Fill, clipped,
		})
	}
	t.Render()
}

func printSummary(w io.Writer, s *analysis.Summary) {
	if s == nil || len(s.Stats) == 0 {
		return
	}
	heading(w, "Descriptive Statistics")
	t := newTable(w, append([]string{"Column"}, analysis.StatNames...)...)
	for _, cs := range s.Stats {
		row := []string{cs.Name}
		for _, v := range cs.Values() {
			row = append(row, fmtNum(v))
		}
		t.Append(row)
	}
	t.Render()
}

func printScores(w io.Writer, r *analysis.PredictResult) {
	if r == nil {
		return
	}
	heading(w, fmt.Sprintf("Model Performance (%s, target: %s, %d train / %d test rows)", r.Task, r.Target, r.TrainRows, r.TestRows))
	t := newTable(w, "Model", "Train score", "Test score")
	for _, s := range r.Scores {
		t.Append([]string{s.Name, fmtNum(s.Train), fmtNum(s.Test)})
	}
	t.Render()
}

func printRuns(w io.Writer, runs []history.Run) {
	t := newTable(w, "Run", "Finished", "Dataset", "Mode", "Rows", "Cols", "Output")
	for _, r := range runs {
		t.Append([]string{
			r.ID, r.FinishedAt.Local().Format("2006-01-02 15:04:05"), r.Dataset, r.Mode,
			strconv.Itoa(r.Rows), strconv.Itoa(r.Columns), r.OutputDir,
		})
	}
	t.Render()
}

// progressRenderer advances a progress bar after every rendered chart.
type progressRenderer struct {
	next charts.Renderer
	bar  *progressbar.ProgressBar
}

func newProgressRenderer(w io.Writer) func(charts.Renderer, int) charts.Renderer {
	return func(next charts.Renderer, total int) charts.Renderer {
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Rendering charts"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(w),
			progressbar.OptionClearOnFinish(),
		)
		return progressRenderer{next: next, bar: bar}
	}
}

func (p progressRenderer) Render(ds *dataset.Dataset, d charts.Descriptor) (string, error) {
	path, err := p.next.Render(ds, d)
	if err != nil {
		return "", err
	}
	_ = p.bar.Add(1)
	return path, nil
}
