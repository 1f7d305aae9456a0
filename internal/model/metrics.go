package model

import "gonum.org/v1/gonum/stat"

// Accuracy is the share of matching labels.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// R2 is the coefficient of determination. A constant truth scores 1 when
// predicted exactly and 0 otherwise.
func R2(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	constant := true
	for _, v := range yTrue[1:] {
		if v != yTrue[0] {
			constant = false
			break
		}
	}
	if constant {
		for i := range yTrue {
			if yPred[i] != yTrue[i] {
				return 0
			}
		}
		return 1
	}
	return stat.RSquaredFrom(yPred, yTrue, nil)
}
