package analysis

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// Features is a row-major design matrix with column names.
type Features struct {
	Names []string
	Rows  [][]float64
}

// EncodeFeatures builds the design matrix from every column except target.
// Categorical columns are one-hot encoded with the first (sorted) level
// dropped, temporal columns become Unix seconds, numeric columns pass through.
func EncodeFeatures(ds *dataset.Dataset, target string) (*Features, error) {
	f := &Features{Rows: make([][]float64, ds.Rows())}
	for i := range f.Rows {
		f.Rows[i] = []float64{}
	}
	for _, c := range ds.Columns {
		if c.Name == target {
			continue
		}
		switch c.Kind {
		case dataset.Numeric:
			f.Names = append(f.Names, c.Name)
			for i, v := range c.Nums {
				if math.IsNaN(v) {
					return nil, fmt.Errorf("feature %q has missing values, clean the dataset first", c.Name)
				}
				f.Rows[i] = append(f.Rows[i], v)
			}
		case dataset.Temporal:
			f.Names = append(f.Names, c.Name)
			for i, t := range c.Times {
				if t.IsZero() {
					return nil, fmt.Errorf("feature %q has missing values, clean the dataset first", c.Name)
				}
				f.Rows[i] = append(f.Rows[i], float64(t.Unix()))
			}
		default:
			levels := Levels(c.Strs)
			if len(levels) < 2 {
				continue
			}
			for _, lv := range levels[1:] {
				f.Names = append(f.Names, c.Name+"_"+lv)
			}
			for i, s := range c.Strs {
				for _, lv := range levels[1:] {
					v := 0.0
					if s == lv {
						v = 1
					}
					f.Rows[i] = append(f.Rows[i], v)
				}
			}
		}
	}
	return f, nil
}

// Levels returns the sorted distinct non-missing labels.
func Levels(vals []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, v := range vals {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// Select returns the rows at idx.
func Select[T any](rows []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

// SplitIndices shuffles 0..n-1 with a seeded generator and returns the
// train and test positions. The test split holds ceil(ratio*n) rows.
func SplitIndices(n int, ratio float64, seed int64) (train, test []int, err error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, fmt.Errorf("test ratio %v must be between 0 and 1", ratio)
	}
	nTest := int(math.Ceil(ratio * float64(n)))
	if n < 2 || nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("%w: %d row(s)", ErrTooFewRows, n)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// StandardScaler centers and scales each feature with population statistics.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// Fit learns per-feature mean and standard deviation. Constant features keep scale 1.
func (s *StandardScaler) Fit(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	p := len(rows[0])
	s.Mean = make([]float64, p)
	s.Std = make([]float64, p)
	col := make([]float64, len(rows))
	for j := 0; j < p; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Std[j] = math.Sqrt(variance)
		if s.Std[j] == 0 || math.IsNaN(s.Std[j]) {
			s.Std[j] = 1
		}
	}
}

// Transform returns scaled copies of rows.
func (s *StandardScaler) Transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = make([]float64, len(r))
		for j, v := range r {
			out[i][j] = (v - s.Mean[j]) / s.Std[j]
		}
	}
	return out
}
