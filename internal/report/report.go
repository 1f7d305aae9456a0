// Package report renders the plain-text analysis report and the JSON run
// manifest written next to it.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/dataloom-cli/internal/analysis"
	"github.com/KaramelBytes/dataloom-cli/internal/cleaning"
	"github.com/KaramelBytes/dataloom-cli/internal/utils"
)

// DefaultFileName is the report file written into the output directory.
const DefaultFileName = "analysis_report.txt"

// Document is everything the text report shows. Summary is set for
// descriptive runs, Predict for predictive ones.
type Document struct {
	RunID    string
	Dataset  string
	Rows     int
	Columns  int
	Cleaning *cleaning.Report
	Summary  *analysis.Summary
	Predict  *analysis.PredictResult
	Charts   []string
}

// Render formats doc as plain text. Empty sections are omitted, except the
// chart list of a descriptive run.
func Render(doc Document) string {
	var sb strings.Builder
	sb.WriteString("Analysis Report\n")
	sb.WriteString(strings.Repeat("=", 20))
	sb.WriteString("\n\n")
	if doc.RunID != "" {
		fmt.Fprintf(&sb, "Run: %s\n", doc.RunID)
	}
	if doc.Dataset != "" {
		fmt.Fprintf(&sb, "Dataset: %s (%d rows, %d columns)\n", doc.Dataset, doc.Rows, doc.Columns)
	}

	if lines := cleaningLines(doc.Cleaning); len(lines) > 0 {
		sb.WriteString("\nCleaning Summary:\n")
		for _, l := range lines {
			sb.WriteString("  ")
			sb.WriteString(l)
			sb.WriteString("\n")
		}
	}

	if doc.Summary != nil && len(doc.Summary.Stats) > 0 {
		sb.WriteString("\nDescriptive Statistics:\n")
		for _, s := range doc.Summary.Stats {
			fmt.Fprintf(&sb, "%s:\n", s.Name)
			for i, v := range s.Values() {
				fmt.Fprintf(&sb, "  %s: %.2f\n", analysis.StatNames[i], v)
			}
		}
	}

	if doc.Predict != nil {
		fmt.Fprintf(&sb, "\nModel Performance (%s, target: %s):\n", doc.Predict.Task, doc.Predict.Target)
		for _, s := range doc.Predict.Scores {
			fmt.Fprintf(&sb, "%s:\n", s.Name)
			fmt.Fprintf(&sb, "  train_score: %.2f\n", s.Train)
			fmt.Fprintf(&sb, "  test_score: %.2f\n", s.Test)
		}
	}

	if doc.Summary != nil || len(doc.Charts) > 0 {
		sb.WriteString("\nCharts Generated:\n")
		for _, c := range doc.Charts {
			fmt.Fprintf(&sb, "Chart '%s' has been generated and saved.\n", ChartName(c))
		}
	}
	return sb.String()
}

// ChartName strips directory and extension from a chart path.
func ChartName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func cleaningLines(rep *cleaning.Report) []string {
	if rep == nil {
		return nil
	}
	var out []string
	for _, d := range rep.Columns {
		pct := d.MissingRatio * 100
		switch {
		case d.Dropped:
			out = append(out, fmt.Sprintf("%s: dropped (missing %.1f%%)", d.Column, pct))
		case d.Strategy != "":
			line := fmt.Sprintf("%s: imputed with %s (missing %.1f%%)", d.Column, d.Strategy, pct)
			if d.Fallback {
				line += ", mode used for a categorical column"
			}
			out = append(out, line)
		}
		if d.Clipped > 0 {
			out = append(out, fmt.Sprintf("%s: clipped %d value(s) to [%.2f, %.2f]", d.Column, d.Clipped, d.Lower, d.Upper))
		}
	}
	return out
}

// Write renders doc into dir/file and returns the written path.
func Write(dir, file string, doc Document) (string, error) {
	if file == "" {
		file = DefaultFileName
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("ensure dir: %w", err)
	}
	path := filepath.Join(dir, file)
	if err := utils.SafeWriteFile(path, []byte(Render(doc))); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
