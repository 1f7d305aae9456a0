package model

import (
	"math"
	"math/rand"
	"sort"
)

// Forest holds the hyperparameters shared by both random forests.
type Forest struct {
	NEstimators     int
	MaxDepth        int // 0 => unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures is the number of features tried per split; 0 picks
	// sqrt(p) for classification and p for regression.
	MaxFeatures int
	RandomState int64

	trees []*node
}

// ForestOption functional config for random forests.
type ForestOption func(*Forest)

func WithNEstimators(n int) ForestOption { return func(f *Forest) { f.NEstimators = n } }
func WithMaxDepth(d int) ForestOption { return func(f *Forest) { f.MaxDepth = d } }
func WithRandomState(seed int64) ForestOption { return func(f *Forest) { f.RandomState = seed } }

const defaultEstimators = 100

func newForest(opts []ForestOption) Forest {
	f := Forest{
		NEstimators:     defaultEstimators,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		RandomState:     42,
	}
	for _, o := range opts {
		o(&f)
	}
	if f.NEstimators <= 0 {
		f.NEstimators = defaultEstimators
	}
	if f.MinSamplesLeaf <= 0 {
		f.MinSamplesLeaf = 1
	}
	return f
}

// grow fits NEstimators trees sequentially, each on a bootstrap sample drawn
// from a generator seeded with RandomState+tree index.
func (f *Forest) grow(X [][]float64, nClasses int, yc []int, yr []float64, maxFeatures int) {
	n := len(X)
	f.trees = make([]*node, f.NEstimators)
	for t := range f.trees {
		rnd := rand.New(rand.NewSource(f.RandomState + int64(t)))
		sample := make([]int, n)
		for j := range sample {
			sample[j] = rnd.Intn(n)
		}
		c := &cart{
			maxDepth:    f.MaxDepth,
			minSplit:    f.MinSamplesSplit,
			minLeaf:     f.MinSamplesLeaf,
			maxFeatures: maxFeatures,
			nClasses:    nClasses,
			rnd:         rnd,
			X:           X,
			yc:          yc,
			yr:          yr,
		}
		f.trees[t] = c.build(sample, 0)
	}
}

// RandomForestClassifier votes over bootstrap CART trees.
type RandomForestClassifier struct {
	Forest
	classes []int
}

// NewRandomForestClassifier returns a classifier with sensible defaults.
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	return &RandomForestClassifier{Forest: newForest(opts)}
}

// Fit trains the forest on labels y.
func (m *RandomForestClassifier) Fit(X [][]float64, y []int) error {
	p, err := checkShape(X, len(y))
	if err != nil {
		return err
	}
	m.classes = nil
	index := map[int]int{}
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
	yc := make([]int, len(y))
	for i, v := range y {
		yc[i] = index[v]
	}
	k := m.MaxFeatures
	if k == 0 {
		k = int(math.Max(1, math.Floor(math.Sqrt(float64(p)))))
	}
	m.grow(X, len(m.classes), yc, nil, k)
	return nil
}

// Predict returns the majority vote; ties go to the smallest label.
func (m *RandomForestClassifier) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	votes := make([]int, len(m.classes))
	for i, x := range X {
		for k := range votes {
			votes[k] = 0
		}
		for _, t := range m.trees {
			votes[int(t.predict(x))]++
		}
		best := 0
		for k := 1; k < len(votes); k++ {
			if votes[k] > votes[best] {
				best = k
			}
		}
		out[i] = m.classes[best]
	}
	return out
}

// RandomForestRegressor averages bootstrap CART trees.
type RandomForestRegressor struct {
	Forest
}

// NewRandomForestRegressor returns a regressor with sensible defaults.
func NewRandomForestRegressor(opts ...ForestOption) *RandomForestRegressor {
	return &RandomForestRegressor{Forest: newForest(opts)}
}

// Fit trains the forest on targets y.
func (m *RandomForestRegressor) Fit(X [][]float64, y []float64) error {
	if _, err := checkShape(X, len(y)); err != nil {
		return err
	}
	m.grow(X, 0, nil, y, m.MaxFeatures)
	return nil
}

// Predict returns the mean tree prediction.
func (m *RandomForestRegressor) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		s := 0.0
		for _, t := range m.trees {
			s += t.predict(x)
		}
		out[i] = s / float64(len(m.trees))
	}
	return out
}
