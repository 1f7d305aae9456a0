package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// StatNames lists descriptive statistics in report order.
var StatNames = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// ColumnStats is one row of the descriptive statistics table.
type ColumnStats struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Q25   float64 `json:"q25"`
	Q50   float64 `json:"q50"`
	Q75   float64 `json:"q75"`
	Max   float64 `json:"max"`
}

// Values returns the statistics in StatNames order.
func (s ColumnStats) Values() []float64 {
	return []float64{float64(s.Count), s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max}
}

// Summary is the descriptive statistics table over numeric columns.
type Summary struct {
	Stats []ColumnStats `json:"stats"`
}

// Describe computes count, mean, sample std, min, quartiles and max for every
// numeric column, skipping missing cells.
func Describe(ds *dataset.Dataset) *Summary {
	out := &Summary{}
	for _, c := range ds.OfKind(dataset.Numeric) {
		out.Stats = append(out.Stats, describeColumn(c.Name, c.Present()))
	}
	return out
}

func describeColumn(name string, vals []float64) ColumnStats {
	s := ColumnStats{Name: name, Count: len(vals)}
	if len(vals) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}
	s.Mean, s.Std = stat.MeanStdDev(vals, nil)
	if len(vals) < 2 {
		s.Std = math.NaN()
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	s.Min = floats.Min(sorted)
	s.Max = floats.Max(sorted)
	s.Q25 = Quantile(sorted, 0.25)
	s.Q50 = Quantile(sorted, 0.5)
	s.Q75 = Quantile(sorted, 0.75)
	return s
}
