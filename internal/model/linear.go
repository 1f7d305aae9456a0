package model

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rcond is the relative singular value cutoff used for rank decisions.
const rcond = 1e-10

// solveMinNorm returns the minimum-norm least squares solution of A·X = B.
// Rank-deficient systems are handled by truncating small singular values.
func solveMinNorm(a, b mat.Matrix) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, errors.New("model: svd factorization failed")
	}
	_, c := a.Dims()
	_, k := b.Dims()
	rank := svd.Rank(rcond)
	if rank == 0 {
		return mat.NewDense(c, k, nil), nil
	}
	var x mat.Dense
	svd.SolveTo(&x, b, rank)
	return &x, nil
}

// LinearRegression is ordinary least squares with an intercept.
type LinearRegression struct {
	Coef      []float64
	Intercept float64
}

// NewLinearRegression returns an unfitted model.
func NewLinearRegression() *LinearRegression { return &LinearRegression{} }

// Fit solves the centered least squares problem, so the intercept is
// mean(y) - mean(X)·Coef.
func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	p, err := checkShape(X, len(y))
	if err != nil {
		return err
	}
	n := len(X)
	ym := stat.Mean(y, nil)
	m.Coef = make([]float64, p)
	m.Intercept = ym
	if p == 0 {
		return nil
	}
	means := columnMeans(X)
	a := mat.NewDense(n, p, nil)
	b := mat.NewDense(n, 1, nil)
	for i, row := range X {
		for j, v := range row {
			a.Set(i, j, v-means[j])
		}
		b.Set(i, 0, y[i]-ym)
	}
	beta, err := solveMinNorm(a, b)
	if err != nil {
		return err
	}
	for j := 0; j < p; j++ {
		m.Coef[j] = beta.At(j, 0)
		m.Intercept -= means[j] * m.Coef[j]
	}
	return nil
}

// Predict evaluates the fitted hyperplane.
func (m *LinearRegression) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		s := m.Intercept
		for j, v := range row {
			s += m.Coef[j] * v
		}
		out[i] = s
	}
	return out
}

func columnMeans(X [][]float64) []float64 {
	means := make([]float64, len(X[0]))
	for _, row := range X {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(X))
	}
	return means
}

// LinearDiscriminant is linear discriminant analysis with a pooled
// within-class covariance and empirical class priors.
type LinearDiscriminant struct {
	classes []int
	coef    *mat.Dense // p x K
	bias    []float64
}

// NewLinearDiscriminant returns an unfitted model.
func NewLinearDiscriminant() *LinearDiscriminant { return &LinearDiscriminant{} }

// Fit estimates class means and the shared covariance, then precomputes
// the linear discriminant functions.
func (m *LinearDiscriminant) Fit(X [][]float64, y []int) error {
	p, err := checkShape(X, len(y))
	if err != nil {
		return err
	}
	n := len(X)
	index := map[int]int{}
	m.classes = nil
	for _, v := range y {
		if _, ok := index[v]; !ok {
			index[v] = 0
			m.classes = append(m.classes, v)
		}
	}
	sort.Ints(m.classes)
	for k, v := range m.classes {
		index[v] = k
	}
	K := len(m.classes)
	counts := make([]float64, K)
	means := mat.NewDense(K, max(p, 1), nil)
	for i, row := range X {
		k := index[y[i]]
		counts[k]++
		for j, v := range row {
			means.Set(k, j, means.At(k, j)+v)
		}
	}
	for k := 0; k < K; k++ {
		for j := 0; j < p; j++ {
			means.Set(k, j, means.At(k, j)/counts[k])
		}
	}
	m.bias = make([]float64, K)
	for k := range m.bias {
		m.bias[k] = math.Log(counts[k] / float64(n))
	}
	if p == 0 {
		m.coef = nil
		return nil
	}

	cov := mat.NewDense(p, p, nil)
	for i, row := range X {
		k := index[y[i]]
		for a := 0; a < p; a++ {
			da := row[a] - means.At(k, a)
			for b := a; b < p; b++ {
				cov.Set(a, b, cov.At(a, b)+da*(row[b]-means.At(k, b)))
			}
		}
	}
	dof := float64(n - K)
	if dof <= 0 {
		dof = float64(n)
	}
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			v := cov.At(a, b) / dof
			cov.Set(a, b, v)
			cov.Set(b, a, v)
		}
	}

	// coef = cov^+ · meansᵀ
	w, err := solveMinNorm(cov, means.T())
	if err != nil {
		return err
	}
	m.coef = w
	for k := 0; k < K; k++ {
		mu := means.RawRowView(k)[:p]
		q := 0.0
		for j := 0; j < p; j++ {
			q += mu[j] * w.At(j, k)
		}
		m.bias[k] -= 0.5 * q
	}
	return nil
}

// Predict assigns each row to the class with the largest discriminant.
func (m *LinearDiscriminant) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i, row := range X {
		best, bestScore := 0, 0.0
		for k := range m.classes {
			s := m.bias[k]
			if m.coef != nil {
				for j, v := range row {
					s += v * m.coef.At(j, k)
				}
			}
			if k == 0 || s > bestScore {
				best, bestScore = k, s
			}
		}
		out[i] = m.classes[best]
	}
	return out
}
