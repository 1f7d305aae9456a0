package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
)

// ProfileOptions controls the dataset profile.
type ProfileOptions struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// Correlations lists the strongest Pearson pairs among numeric columns.
	Correlations bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
	// TopValues caps the categorical value counts listed per column.
	TopValues int
}

// DefaultProfileOptions returns reasonable defaults for dataset profiling.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{
		SampleRows:       5,
		Correlations:     true,
		Outliers:         true,
		OutlierThreshold: 3.5,
		TopValues:        8,
	}
}

// Profile is a markdown-friendly overview of a loaded dataset.
type Profile struct {
	Name     string
	Rows     int
	Index    string
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
	Corr     *CorrMatrix
}

// ColumnSummary captures inferred kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    dataset.Kind
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Temporal range
	First string
	Last  string
	// Categorical top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// ProfileDataset summarizes every column of ds.
func ProfileDataset(ds *dataset.Dataset, opt ProfileOptions) *Profile {
	p := &Profile{Name: ds.Name, Rows: ds.Rows(), Index: ds.Index}
	for _, c := range ds.Columns {
		s := ColumnSummary{Name: c.Name, Kind: c.Kind, Missing: c.MissingCount()}
		s.NonNull = c.Len() - s.Missing
		switch c.Kind {
		case dataset.Numeric:
			st := describeColumn(c.Name, c.Present())
			s.Min, s.Max, s.Mean, s.Std = st.Min, st.Max, st.Mean, st.Std
			if opt.Outliers && st.Count >= 8 {
				s.OutlierThreshold = opt.OutlierThreshold
				if s.OutlierThreshold <= 0 {
					s.OutlierThreshold = 3.5
				}
				s.OutliersCount, s.OutliersMaxAbsZ = robustOutliers(c.Present(), s.OutlierThreshold)
			}
		case dataset.Temporal:
			first, last := -1, -1
			for i, t := range c.Times {
				if t.IsZero() {
					continue
				}
				if first < 0 || t.Before(c.Times[first]) {
					first = i
				}
				if last < 0 || t.After(c.Times[last]) {
					last = i
				}
			}
			if first >= 0 {
				s.First, s.Last = c.Cell(first), c.Cell(last)
			}
		default:
			s.TopValues, s.Unique = topValues(c.Strs, opt.TopValues)
		}
		p.Cols = append(p.Cols, s)
	}
	records := ds.Records()
	for i := 1; i < len(records) && i <= opt.SampleRows; i++ {
		p.Samples = append(p.Samples, records[i])
	}
	if opt.Correlations && len(ds.OfKind(dataset.Numeric)) >= 2 {
		p.Corr = Correlate(ds)
	}
	if ds.Rows() == 0 {
		p.Warnings = append(p.Warnings, "dataset has no data rows")
	}
	for _, s := range p.Cols {
		if total := s.NonNull + s.Missing; total > 0 && float64(s.Missing)/float64(total) >= 0.5 {
			p.Warnings = append(p.Warnings, fmt.Sprintf("%s is at least half missing and will be dropped by cleaning", s.Name))
		}
	}
	return p
}

func robustOutliers(vals []float64, thr float64) (int, float64) {
	median, mad := medianMAD(vals)
	if mad <= 0 {
		return 0, 0
	}
	var cnt int
	maxAbsZ := 0.0
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			cnt++
		}
		if az > maxAbsZ {
			maxAbsZ = az
		}
	}
	return cnt, maxAbsZ
}

// topValues returns the most frequent labels (count desc, label asc) and the
// number of distinct non-missing labels.
func topValues(vals []string, limit int) ([]CategoryCount, int) {
	counts := map[string]int{}
	for _, v := range vals {
		if v != "" {
			counts[v]++
		}
	}
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if limit > 0 && len(tops) > limit {
		tops = tops[:limit]
	}
	return tops, len(counts)
}

// TopValues exposes the frequency ranking used by profiles and bar charts.
func TopValues(vals []string, limit int) []CategoryCount {
	tops, _ := topValues(vals, limit)
	return tops
}

// Markdown renders a compact report suitable for standalone docs.
func (r *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(r.Cols)))
	if r.Index != "" {
		b.WriteString(fmt.Sprintf("Index: %s\n", r.Index))
	}
	b.WriteString("\n[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case dataset.Numeric:
			b.WriteString(fmt.Sprintf(" · min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
				if c.OutliersMaxAbsZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", c.OutliersMaxAbsZ))
				}
			}
		case dataset.Temporal:
			if c.First != "" {
				b.WriteString(fmt.Sprintf(" · %s to %s", c.First, c.Last))
			}
		case dataset.Categorical:
			if len(c.TopValues) > 0 {
				b.WriteString(" · top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}
	if r.Corr != nil {
		pairs := r.Corr.Pairs()
		if len(pairs) > 0 {
			b.WriteString("\n[CORRELATIONS]\n")
			// each unordered pair once, strongest |r| first
			var uniq []PairCorr
			for _, p := range pairs {
				if p.A < p.B {
					uniq = append(uniq, p)
				}
			}
			sort.SliceStable(uniq, func(i, j int) bool { return math.Abs(uniq[i].R) > math.Abs(uniq[j].R) })
			if len(uniq) > 10 {
				uniq = uniq[:10]
			}
			for _, p := range uniq {
				b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
			}
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
