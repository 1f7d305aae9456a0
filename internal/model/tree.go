package model

import (
	"math/rand"
	"sort"
)

// node is a CART node. Leaves carry a class index or a mean.
type node struct {
	leaf      bool
	feature   int
	threshold float64 // x <= threshold goes left
	left      *node
	right     *node
	value     float64
}

func (n *node) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// cart grows one tree. Classification uses the gini criterion, regression
// the squared error; both are evaluated with a single sorted sweep per feature.
type cart struct {
	maxDepth    int // 0 => unlimited
	minSplit    int
	minLeaf     int
	maxFeatures int // 0 or >= p => all features
	nClasses    int // > 0 selects classification
	rnd         *rand.Rand

	X  [][]float64
	yc []int
	yr []float64
}

func (c *cart) classify() bool { return c.nClasses > 0 }

func (c *cart) build(idx []int, depth int) *node {
	leaf := &node{leaf: true, value: c.leafValue(idx)}
	if len(idx) < c.minSplit || len(idx) < 2*c.minLeaf {
		return leaf
	}
	if c.maxDepth > 0 && depth >= c.maxDepth {
		return leaf
	}
	parent := c.score(idx)
	feature, threshold, best, ok := c.bestSplit(idx)
	if !ok || best <= parent+1e-12 {
		return leaf
	}
	var left, right []int
	for _, i := range idx {
		if c.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leaf
	}
	return &node{
		feature:   feature,
		threshold: threshold,
		left:      c.build(left, depth+1),
		right:     c.build(right, depth+1),
	}
}

// score is the quantity a split maximizes: sum of squared class counts over
// n for classification, squared target sum over n for regression.
func (c *cart) score(idx []int) float64 {
	n := float64(len(idx))
	if c.classify() {
		counts := make([]float64, c.nClasses)
		for _, i := range idx {
			counts[c.yc[i]]++
		}
		s := 0.0
		for _, v := range counts {
			s += v * v
		}
		return s / n
	}
	sum := 0.0
	for _, i := range idx {
		sum += c.yr[i]
	}
	return sum * sum / n
}

func (c *cart) leafValue(idx []int) float64 {
	if c.classify() {
		counts := make([]int, c.nClasses)
		for _, i := range idx {
			counts[c.yc[i]]++
		}
		best := 0
		for k := 1; k < len(counts); k++ {
			if counts[k] > counts[best] {
				best = k
			}
		}
		return float64(best)
	}
	sum := 0.0
	for _, i := range idx {
		sum += c.yr[i]
	}
	return sum / float64(len(idx))
}

func (c *cart) features() []int {
	p := len(c.X[0])
	if c.maxFeatures <= 0 || c.maxFeatures >= p {
		out := make([]int, p)
		for j := range out {
			out[j] = j
		}
		return out
	}
	return c.rnd.Perm(p)[:c.maxFeatures]
}

func (c *cart) bestSplit(idx []int) (feature int, threshold, best float64, ok bool) {
	sorted := make([]int, len(idx))
	n := len(idx)
	for _, f := range c.features() {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool { return c.X[sorted[a]][f] < c.X[sorted[b]][f] })

		var sweep func(k int) float64
		if c.classify() {
			left := make([]float64, c.nClasses)
			right := make([]float64, c.nClasses)
			var leftSq, rightSq float64
			for _, i := range sorted {
				right[c.yc[i]]++
			}
			for _, v := range right {
				rightSq += v * v
			}
			sweep = func(k int) float64 {
				cl := c.yc[sorted[k]]
				leftSq += 2*left[cl] + 1
				left[cl]++
				rightSq -= 2*right[cl] - 1
				right[cl]--
				nl, nr := float64(k+1), float64(n-k-1)
				return leftSq/nl + rightSq/nr
			}
		} else {
			var total float64
			for _, i := range sorted {
				total += c.yr[i]
			}
			var sumL float64
			sweep = func(k int) float64 {
				sumL += c.yr[sorted[k]]
				sumR := total - sumL
				nl, nr := float64(k+1), float64(n-k-1)
				return sumL*sumL/nl + sumR*sumR/nr
			}
		}

		for k := 0; k < n-1; k++ {
			s := sweep(k)
			if k+1 < c.minLeaf || n-k-1 < c.minLeaf {
				continue
			}
			lo, hi := c.X[sorted[k]][f], c.X[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			if !ok || s > best {
				feature, threshold, best, ok = f, lo+(hi-lo)/2, s, true
			}
		}
	}
	return
}
