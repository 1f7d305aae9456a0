// Package model holds the estimators used by predictive analysis. Features are
// row-major [][]float64 without missing values.
package model

import (
	"errors"
	"fmt"
)

// Classifier predicts integer class labels.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
}

// Regressor predicts continuous targets.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
}

// ErrEmpty is returned when fitting on zero rows.
var ErrEmpty = errors.New("model: empty training set")

// checkShape validates X against n targets and returns the feature count.
func checkShape(X [][]float64, n int) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmpty
	}
	if len(X) != n {
		return 0, fmt.Errorf("model: X has %d rows but y has %d", len(X), n)
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return 0, fmt.Errorf("model: row %d has %d features, expected %d", i, len(X[i]), p)
		}
	}
	return p, nil
}
