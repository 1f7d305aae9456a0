package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]; NaN when undefined
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Correlate computes pairwise Pearson correlations over numeric columns,
// using rows where both cells are present.
func Correlate(ds *dataset.Dataset) *CorrMatrix {
	cols := ds.OfKind(dataset.Numeric)
	m := &CorrMatrix{Columns: make([]string, len(cols)), Values: make([][]float64, len(cols))}
	for i, c := range cols {
		m.Columns[i] = c.Name
		m.Values[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := pearson(cols[i].Nums, cols[j].Nums)
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

func pearson(a, b []float64) float64 {
	var x, y []float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	if len(x) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN()
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// Pairs flattens the matrix row by row into ordered pairs, so every unordered
// pair appears twice (A-B and B-A). A column is never paired with itself and
// undefined correlations are skipped. The result is sorted by descending r;
// ties keep matrix order.
func (m *CorrMatrix) Pairs() []PairCorr {
	var out []PairCorr
	for i, a := range m.Columns {
		for j, b := range m.Columns {
			if i == j {
				continue
			}
			r := m.Values[i][j]
			if math.IsNaN(r) {
				continue
			}
			out = append(out, PairCorr{A: a, B: b, R: r})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].R > out[j].R })
	return out
}
